// Package tcpclient implements a small TCP client with connection reuse.
//
// A Registry caches at most one live connection per "host:port" endpoint.
// The first request for an endpoint dials it; later requests return the
// cached Conn until it is closed, at which point it evicts itself from
// the registry.
//
// Responses carry no length prefix or delimiter. Conn.ReceiveSync reads
// into a fixed-size buffer and keeps reading only while each read fills
// the buffer completely; a short read ends the response. See ReceiveSync
// for the exact-multiple edge case.
//
// Asynchronous sends and receives are serialized on two single-worker
// queues owned by the Registry, one per direction, shared by every
// connection. Callbacks run on the receive worker and must return
// promptly.
package tcpclient
