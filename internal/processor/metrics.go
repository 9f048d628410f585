package processor

import (
	"sync/atomic"
	"time"
)

// ServiceMetrics are in-process counters logged by the reporter loop. The
// prometheus series live in pkg/prom.
type ServiceMetrics struct {
	processed  int64
	failed     int64
	sweeps     int64
	durationNs int64
	startedNs  int64
}

type Stats struct {
	Processed     int64
	Failed        int64
	Sweeps        int64
	RatePerSecond float64
	AvgDuration   time.Duration
	Uptime        time.Duration
}

func NewServiceMetrics() *ServiceMetrics {
	return &ServiceMetrics{
		startedNs: time.Now().UnixNano(),
	}
}

func (m *ServiceMetrics) RecordSuccess(duration time.Duration) {
	atomic.AddInt64(&m.processed, 1)
	atomic.AddInt64(&m.durationNs, int64(duration))
}

func (m *ServiceMetrics) RecordFailure() {
	atomic.AddInt64(&m.failed, 1)
}

func (m *ServiceMetrics) RecordSweep() {
	atomic.AddInt64(&m.sweeps, 1)
}

func (m *ServiceMetrics) GetStats() Stats {
	processed := atomic.LoadInt64(&m.processed)
	uptime := time.Since(time.Unix(0, atomic.LoadInt64(&m.startedNs)))

	s := Stats{
		Processed: processed,
		Failed:    atomic.LoadInt64(&m.failed),
		Sweeps:    atomic.LoadInt64(&m.sweeps),
		Uptime:    uptime,
	}
	if sec := uptime.Seconds(); sec > 0 {
		s.RatePerSecond = float64(processed) / sec
	}
	if processed > 0 {
		s.AvgDuration = time.Duration(atomic.LoadInt64(&m.durationNs) / processed)
	}
	return s
}
