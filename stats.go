package tcpclient

import "sync/atomic"

// Stats contains counters for registry and connection operations.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose these as:
//   - Counters: Dials, DialErrors, Sends, SendErrors, Receives,
//     ReceiveErrors, BytesSent, BytesReceived, Evictions
type Stats struct {
	Dials         uint64 // Successful dials
	DialErrors    uint64 // Failed dials (circuit-breaker refusals excluded)
	Sends         uint64 // Completed sends, sync and async
	SendErrors    uint64 // Sends that failed on the transport
	Receives      uint64 // Completed receives
	ReceiveErrors uint64 // Receives that ended with a transport error
	BytesSent     uint64 // Payload bytes written
	BytesReceived uint64 // Payload bytes read
	Evictions     uint64 // Entries removed from the registry
}

// statsCollector provides internal methods for updating stats.
// Not exported - the registry and its connections update their own stats.
type statsCollector struct {
	stats *Stats
}

func newStatsCollector() *statsCollector {
	return &statsCollector{stats: &Stats{}}
}

func (c *statsCollector) recordDial(err error) {
	if err != nil {
		atomic.AddUint64(&c.stats.DialErrors, 1)
		return
	}
	atomic.AddUint64(&c.stats.Dials, 1)
}

func (c *statsCollector) recordSend(n int, err error) {
	if err != nil {
		atomic.AddUint64(&c.stats.SendErrors, 1)
		return
	}
	atomic.AddUint64(&c.stats.Sends, 1)
	atomic.AddUint64(&c.stats.BytesSent, uint64(n))
}

func (c *statsCollector) recordReceive(n int, err error) {
	if err != nil {
		atomic.AddUint64(&c.stats.ReceiveErrors, 1)
		return
	}
	atomic.AddUint64(&c.stats.Receives, 1)
	atomic.AddUint64(&c.stats.BytesReceived, uint64(n))
}

func (c *statsCollector) recordEviction() {
	atomic.AddUint64(&c.stats.Evictions, 1)
}

func (c *statsCollector) snapshot() Stats {
	return Stats{
		Dials:         atomic.LoadUint64(&c.stats.Dials),
		DialErrors:    atomic.LoadUint64(&c.stats.DialErrors),
		Sends:         atomic.LoadUint64(&c.stats.Sends),
		SendErrors:    atomic.LoadUint64(&c.stats.SendErrors),
		Receives:      atomic.LoadUint64(&c.stats.Receives),
		ReceiveErrors: atomic.LoadUint64(&c.stats.ReceiveErrors),
		BytesSent:     atomic.LoadUint64(&c.stats.BytesSent),
		BytesReceived: atomic.LoadUint64(&c.stats.BytesReceived),
		Evictions:     atomic.LoadUint64(&c.stats.Evictions),
	}
}
