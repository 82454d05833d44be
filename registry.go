package tcpclient

import (
	"errors"
	"net"
	"strconv"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// Registry is an endpoint-keyed cache of live connections. It guarantees
// at most one Conn per "host:port" key: the first request dials, later
// requests return the cached Conn. An entry leaves the cache exactly when
// its connection is closed.
//
// A Registry also owns the two single-worker queues backing the async
// Send and Receive methods of its connections: one serializing all
// outbound work and one serializing all inbound work, across every
// connection. The zero value is not usable; create a Registry with New.
type Registry struct {
	config   Config
	logger   *zap.Logger
	conns    *xsync.MapOf[string, *Conn]
	breakers *xsync.MapOf[string, CircuitBreaker]
	sendQ    *dispatcher
	recvQ    *dispatcher
	stats    *statsCollector

	mu     sync.Mutex
	closed bool
}

// New creates a Registry. cfg may be nil, in which case all defaults
// apply.
func New(cfg *Config) *Registry {
	config := cfg.withDefaults()
	r := &Registry{
		config:   config,
		logger:   config.Logger,
		conns:    xsync.NewMapOf[string, *Conn](),
		breakers: xsync.NewMapOf[string, CircuitBreaker](),
		stats:    newStatsCollector(),
	}
	r.sendQ = newDispatcher("send", config.QueueDepth, config.Logger)
	r.recvQ = newDispatcher("receive", config.QueueDepth, config.Logger)
	return r
}

// EndpointKey returns the cache key for a host/port pair. Two requests
// with the same host string and port are the same endpoint, regardless
// of what the host resolves to.
func EndpointKey(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// GetOrCreate returns the cached connection for the endpoint, dialing a
// new one if none exists. At most one connection per endpoint is ever
// created, even when multiple goroutines request the same endpoint for
// the first time concurrently. A failed dial is returned as
// *ConnectError and leaves no entry behind.
func (r *Registry) GetOrCreate(host string, port int) (*Conn, error) {
	if r.isClosed() {
		return nil, ErrRegistryClosed
	}
	key := EndpointKey(host, port)

	// Compute holds the entry lock while dialing, so concurrent first
	// requests for the same endpoint wait for one dial instead of
	// racing their own.
	var dialErr error
	conn, _ := r.conns.Compute(key, func(old *Conn, loaded bool) (*Conn, bool) {
		if loaded {
			return old, false
		}
		c, err := r.dial(key)
		if err != nil {
			dialErr = err
			return nil, true
		}
		return c, false
	})
	if dialErr != nil {
		return nil, dialErr
	}
	// Close may have run while the dial was in flight and missed the
	// new entry. Re-checking after the insert guarantees the conn is
	// either observed by Close or released here.
	if r.isClosed() {
		_ = conn.Close()
		return nil, ErrRegistryClosed
	}
	return conn, nil
}

// Remove evicts the endpoint's entry without closing the connection.
// It is a no-op if the endpoint is not cached.
func (r *Registry) Remove(host string, port int) {
	r.evict(EndpointKey(host, port))
}

// SendAndReceive resolves a connection for the endpoint, sends the
// payload and reads one response. Any failure along the way is logged
// and an empty slice returned, so the call never fails; callers that
// need to distinguish errors should use GetOrCreate and the Conn
// methods directly.
func (r *Registry) SendAndReceive(host string, port int, payload []byte) []byte {
	conn, err := r.GetOrCreate(host, port)
	if err != nil {
		r.logger.Error("send and receive", zap.Error(err))
		return []byte{}
	}
	data, err := conn.SendAndReceiveSync(payload)
	if err != nil {
		r.logger.Error("send and receive", zap.String("addr", conn.Addr()), zap.Error(err))
		return []byte{}
	}
	return data
}

// SendAndReceiveString is SendAndReceive for UTF-8 strings.
func (r *Registry) SendAndReceiveString(host string, port int, payload string) string {
	return string(r.SendAndReceive(host, port, []byte(payload)))
}

// Len returns the number of cached connections.
func (r *Registry) Len() int {
	return r.conns.Size()
}

// Stats returns a snapshot of the operation counters.
func (r *Registry) Stats() Stats {
	return r.stats.snapshot()
}

// Close closes every cached connection and stops both dispatch queues
// after they finish the already-queued work. The registry is unusable
// afterwards. Close errors from individual connections are collected
// and returned once everything has been attempted.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	var errs []error
	r.conns.Range(func(key string, c *Conn) bool {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	r.sendQ.close()
	r.recvQ.close()
	return errors.Join(errs...)
}

func (r *Registry) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Registry) evict(key string) {
	if _, ok := r.conns.LoadAndDelete(key); ok {
		r.stats.recordEviction()
		r.logger.Debug("evicted", zap.String("addr", key))
	}
}

// evictConn removes the entry for c's endpoint only while c still owns
// it. A connection that was displaced by Remove plus a later dial must
// not evict its successor when it is finally closed.
func (r *Registry) evictConn(c *Conn) {
	evicted := false
	r.conns.Compute(c.key, func(old *Conn, loaded bool) (*Conn, bool) {
		if !loaded {
			return nil, true
		}
		if old != c {
			return old, false
		}
		evicted = true
		return nil, true
	})
	if evicted {
		r.stats.recordEviction()
		r.logger.Debug("evicted", zap.String("addr", c.key))
	}
}

// dial establishes a new connection, through the endpoint's circuit
// breaker when one is configured.
func (r *Registry) dial(key string) (*Conn, error) {
	dialFn := func() (*Conn, error) {
		nc, err := r.config.Dialer.Dial("tcp", key)
		r.stats.recordDial(err)
		if err != nil {
			return nil, &ConnectError{Addr: key, Err: err}
		}
		r.logger.Debug("dialed", zap.String("addr", key))
		return &Conn{
			key:          key,
			conn:         nc,
			registry:     r,
			readTimeout:  r.config.ReadTimeout,
			writeTimeout: r.config.WriteTimeout,
			bufSize:      r.config.BufferSize,
			logger:       r.logger,
		}, nil
	}

	if r.config.NewCircuitBreaker == nil {
		return dialFn()
	}
	cb, _ := r.breakers.LoadOrCompute(key, func() CircuitBreaker {
		return r.config.NewCircuitBreaker(key)
	})
	conn, err := cb.Execute(dialFn)
	if err != nil {
		var ce *ConnectError
		if errors.As(err, &ce) {
			return nil, err
		}
		// The breaker refused without dialing.
		return nil, &ConnectError{Addr: key, Err: err}
	}
	return conn, nil
}
