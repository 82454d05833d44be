package tcpclient

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards connection establishment for one endpoint.
// *gobreaker.CircuitBreaker[*Conn] satisfies this interface.
type CircuitBreaker interface {
	Execute(fn func() (*Conn, error)) (*Conn, error)
}

// NewCircuitBreakerConfig returns a function that creates circuit breakers
// for endpoints. This is a helper for common use cases; assign the result
// to Config.NewCircuitBreaker.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) CircuitBreaker {
	return func(addr string) CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        addr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return gobreaker.NewCircuitBreaker[*Conn](settings)
	}
}
