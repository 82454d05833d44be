package tcpclient

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Conn wraps a single TCP connection to one endpoint. Conns are created
// by Registry.GetOrCreate and stay cached until closed.
//
// A Conn is not safe for concurrent sends or concurrent receives from
// multiple goroutines. The async Send and Receive methods serialize
// their work on the registry's dispatch queues instead; the send and
// receive directions may run concurrently with each other.
type Conn struct {
	key      string
	conn     net.Conn
	registry *Registry

	readTimeout  time.Duration
	writeTimeout time.Duration
	bufSize      int
	logger       *zap.Logger

	mu     sync.Mutex
	closed bool
}

// Addr returns the endpoint key the connection was created for.
func (c *Conn) Addr() string {
	return c.key
}

// RemoteAddr returns the remote address observed on the socket.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// IsClosed reports whether Close has been called.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SendSync writes the whole payload to the socket on the calling
// goroutine. A write failure is returned as *IOError.
func (c *Conn) SendSync(p []byte) error {
	if c.IsClosed() {
		return &IOError{Op: "write", Addr: c.key, Err: ErrConnClosed}
	}
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	n, err := c.conn.Write(p)
	c.registry.stats.recordSend(n, err)
	if err != nil {
		return &IOError{Op: "write", Addr: c.key, Err: err}
	}
	c.logger.Debug("sent", zap.String("addr", c.key), zap.Int("bytes", n))
	return nil
}

// SendStringSync encodes s as UTF-8 and sends it.
func (c *Conn) SendStringSync(s string) error {
	return c.SendSync([]byte(s))
}

// ReceiveSync reads one response from the socket on the calling
// goroutine.
//
// The transport carries no length prefix or delimiter, so the end of a
// response is inferred from a short read: bytes are read into a buffer
// of the configured capacity and reading continues only while each read
// fills the buffer completely. Every read is bounded by the read
// timeout fixed at dial time.
//
// When a response is an exact multiple of the buffer capacity, the
// final read blocks until the deadline expires; the bytes accumulated
// up to that point are then returned without an error. A timeout or
// remote close before the first byte arrives is returned as *IOError.
func (c *Conn) ReceiveSync() ([]byte, error) {
	if c.IsClosed() {
		return nil, &IOError{Op: "read", Addr: c.key, Err: ErrConnClosed}
	}
	var ret []byte
	buf := make([]byte, c.bufSize)
	for {
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		n, err := c.conn.Read(buf)
		ret = append(ret, buf[:n]...)
		if err != nil {
			if len(ret) > 0 && endsResponse(err) {
				break
			}
			c.registry.stats.recordReceive(0, err)
			return nil, &IOError{Op: "read", Addr: c.key, Err: err}
		}
		if n < c.bufSize {
			break
		}
	}
	c.registry.stats.recordReceive(len(ret), nil)
	c.logger.Debug("received", zap.String("addr", c.key), zap.Int("bytes", len(ret)))
	return ret, nil
}

// ReceiveStringSync receives one response and decodes it as UTF-8.
func (c *Conn) ReceiveStringSync() (string, error) {
	data, err := c.ReceiveSync()
	return string(data), err
}

// SendAndReceiveSync performs one round trip on the calling goroutine.
func (c *Conn) SendAndReceiveSync(p []byte) ([]byte, error) {
	if err := c.SendSync(p); err != nil {
		return nil, err
	}
	return c.ReceiveSync()
}

// SendAndReceiveStringSync is SendAndReceiveSync for UTF-8 strings.
func (c *Conn) SendAndReceiveStringSync(s string) (string, error) {
	data, err := c.SendAndReceiveSync([]byte(s))
	return string(data), err
}

// Send enqueues the payload on the registry's send queue and returns
// without waiting for the write. Failures are logged, not surfaced.
func (c *Conn) Send(p []byte) {
	c.registry.sendQ.submit(func() {
		if err := c.SendSync(p); err != nil {
			c.logger.Error("async send failed", zap.String("addr", c.key), zap.Error(err))
		}
	})
}

// SendString encodes s as UTF-8 and sends it asynchronously.
func (c *Conn) SendString(s string) {
	c.Send([]byte(s))
}

// Receive enqueues a read on the registry's receive queue. The callback
// runs on the receive worker; a callback that blocks stalls every other
// pending receive.
func (c *Conn) Receive(callback func([]byte, error)) {
	c.registry.recvQ.submit(func() {
		callback(c.ReceiveSync())
	})
}

// ReceiveString is Receive with the response decoded as UTF-8.
func (c *Conn) ReceiveString(callback func(string, error)) {
	c.registry.recvQ.submit(func() {
		callback(c.ReceiveStringSync())
	})
}

// Close closes the socket and removes the connection from its registry.
// Closing an already-closed connection is a no-op. A failure releasing
// the socket is returned as *CloseError, after the registry entry has
// been removed.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.logger.Debug("closing connection", zap.String("addr", c.key))
	err := c.conn.Close()
	c.registry.evictConn(c)
	if err != nil {
		return &CloseError{Addr: c.key, Err: err}
	}
	return nil
}

// endsResponse reports whether a read error terminates an in-progress
// response rather than failing it: deadline expiry and a remote close
// both mean the producer stopped.
func endsResponse(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
