package tcpclient

import (
	"io"
	"net"
	"strconv"
	"testing"
	"time"
)

// testReadTimeout keeps the exact-multiple and no-data cases fast.
const testReadTimeout = 150 * time.Millisecond

// startServer starts a loopback TCP server that runs handler for every
// accepted connection. Returns the host and port to dial.
func startServer(t testing.TB, handler func(conn net.Conn)) (string, int) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start test server: %v", err)
	}

	t.Cleanup(func() {
		listener.Close()
	})

	// Accept connections in background
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}

			go func(c net.Conn) {
				defer c.Close()

				if handler != nil {
					handler(c)
				}
			}(conn)
		}
	}()

	return parseAddr(t, listener.Addr().String())
}

// deadEndpoint reserves a loopback port and releases it again, yielding
// an endpoint that refuses connections.
func deadEndpoint(t testing.TB) (string, int) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve a port: %v", err)
	}
	host, port := parseAddr(t, listener.Addr().String())
	listener.Close()
	return host, port
}

func parseAddr(t testing.TB, addr string) (string, int) {
	t.Helper()

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("Failed to parse address %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Failed to parse port %q: %v", portStr, err)
	}
	return host, port
}

func newTestRegistry(t testing.TB, cfg *Config) *Registry {
	t.Helper()

	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = testReadTimeout
	}
	r := New(cfg)
	t.Cleanup(func() {
		_ = r.Close()
	})
	return r
}

// echoHandler copies everything it reads back to the peer.
func echoHandler(conn net.Conn) {
	_, _ = io.Copy(conn, conn)
}

// writeThenIdle returns a handler that writes data immediately and then
// keeps the connection open, so the client observes a timeout rather
// than a close.
func writeThenIdle(data []byte) func(conn net.Conn) {
	return func(conn net.Conn) {
		_, _ = conn.Write(data)
		time.Sleep(time.Second)
	}
}

// echoExactly returns a handler that reads exactly n bytes and writes
// them back in a single call, so the client sees the full response at
// once.
func echoExactly(n int) func(conn net.Conn) {
	return func(conn net.Conn) {
		buf := make([]byte, n)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		_, _ = conn.Write(buf)
	}
}

// testPayload builds a deterministic payload of n bytes.
func testPayload(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i % 251)
	}
	return p
}
