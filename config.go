package tcpclient

import (
	"net"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultReadTimeout bounds each individual read on a connection.
	// It is fixed at dial time for the lifetime of the connection.
	DefaultReadTimeout = 3 * time.Second

	// DefaultBufferSize is the read buffer capacity. A read returning
	// fewer bytes than this ends the response.
	DefaultBufferSize = 64

	// DefaultDialTimeout bounds connection establishment.
	DefaultDialTimeout = 5 * time.Second

	// DefaultQueueDepth is the capacity of each async dispatch queue.
	DefaultQueueDepth = 128
)

// Config holds configuration for a Registry and the connections it creates.
// The zero value of every field selects a sensible default.
type Config struct {
	// ReadTimeout bounds each individual read. If no data arrives within
	// it, the read fails with a timeout. Defaults to DefaultReadTimeout.
	ReadTimeout time.Duration

	// WriteTimeout bounds each write. Zero means no write deadline.
	WriteTimeout time.Duration

	// BufferSize is the read buffer capacity used by the short-read
	// termination heuristic. Defaults to DefaultBufferSize.
	BufferSize int

	// DialTimeout bounds connection establishment when Dialer is nil.
	// Defaults to DefaultDialTimeout.
	DialTimeout time.Duration

	// QueueDepth is the capacity of the send and receive dispatch
	// queues. Submitting blocks while a queue is full. Defaults to
	// DefaultQueueDepth.
	QueueDepth int

	// Dialer is the net.Dialer used to create new connections.
	// If nil, a dialer with DialTimeout is used.
	Dialer *net.Dialer

	// Logger receives debug and error output. If nil, logging is
	// disabled.
	Logger *zap.Logger

	// NewCircuitBreaker creates a circuit breaker guarding dials for an
	// endpoint. Called once per endpoint address on first use.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(addr string) CircuitBreaker
}

// withDefaults returns a copy of c with zero fields filled in.
// A nil receiver yields the full default configuration.
func (c *Config) withDefaults() Config {
	var out Config
	if c != nil {
		out = *c
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = DefaultReadTimeout
	}
	if out.BufferSize <= 0 {
		out.BufferSize = DefaultBufferSize
	}
	if out.DialTimeout <= 0 {
		out.DialTimeout = DefaultDialTimeout
	}
	if out.QueueDepth <= 0 {
		out.QueueDepth = DefaultQueueDepth
	}
	if out.Dialer == nil {
		out.Dialer = &net.Dialer{Timeout: out.DialTimeout}
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	return out
}
