package tcpclient

import (
	"errors"
	"fmt"
	"net"
)

var (
	// ErrRegistryClosed is returned for operations on a closed Registry.
	ErrRegistryClosed = errors.New("tcpclient: registry closed")

	// ErrConnClosed is returned when sending or receiving on a closed connection.
	ErrConnClosed = errors.New("tcpclient: connection closed")
)

// ConnectError reports a failed dial: host unreachable, connection
// refused, resolution failure, or a refusal by the dial circuit breaker.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("tcpclient: connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IOError reports a failed read or write on an established connection,
// including deadline expiry.
type IOError struct {
	Op   string // "read" or "write"
	Addr string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("tcpclient: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline expiry.
func (e *IOError) Timeout() bool {
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// CloseError reports a failure releasing the underlying socket.
type CloseError struct {
	Addr string
	Err  error
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("tcpclient: close %s: %v", e.Addr, e.Err)
}

func (e *CloseError) Unwrap() error { return e.Err }
