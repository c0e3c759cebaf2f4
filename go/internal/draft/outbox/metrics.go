package outbox

import (
	"context"
	"sync"
	"time"
)

// MetricsCollector receives relay throughput observations.
type MetricsCollector interface {
	RecordEventProcessed(eventType string, success bool, duration time.Duration)
	RecordBatchProcessed(count int, duration time.Duration)
	RecordOutboxLag(lag int)
}

// NoOpMetrics discards all observations.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordEventProcessed(string, bool, time.Duration) {}
func (NoOpMetrics) RecordBatchProcessed(int, time.Duration)         {}
func (NoOpMetrics) RecordOutboxLag(int)                             {}

// CounterMetrics keeps in-process counters, exposed through the health
// endpoint.
type CounterMetrics struct {
	mu        sync.Mutex
	processed uint64
	failed    uint64
	batches   uint64
	lag       int
	lastEvent time.Time
}

func NewCounterMetrics() *CounterMetrics {
	return &CounterMetrics{}
}

func (m *CounterMetrics) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.processed++
		m.lastEvent = time.Now()
	} else {
		m.failed++
	}
}

func (m *CounterMetrics) RecordBatchProcessed(count int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
}

func (m *CounterMetrics) RecordOutboxLag(lag int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lag = lag
}

// Snapshot returns the counters as of now.
func (m *CounterMetrics) Snapshot() (processed, failed uint64, lag int, lastEvent time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed, m.failed, m.lag, m.lastEvent
}

// MetricPublisher wraps a Publisher with per-event timing.
type MetricPublisher struct {
	publisher Publisher
	metrics   MetricsCollector
}

func NewMetricPublisher(publisher Publisher, metrics MetricsCollector) *MetricPublisher {
	return &MetricPublisher{publisher: publisher, metrics: metrics}
}

func (p *MetricPublisher) Publish(ctx context.Context, event Event) error {
	start := time.Now()
	err := p.publisher.Publish(ctx, event)
	p.metrics.RecordEventProcessed(event.EventType, err == nil, time.Since(start))
	return err
}
