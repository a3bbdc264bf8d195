package telemetry

import (
	"sync"
	"time"
)

// DepthReporter is implemented by queues that can report their backlog.
type DepthReporter interface {
	Len() int
}

// MetricsCollector periodically samples queue depth into the QueueDepth gauge
type MetricsCollector struct {
	queue    DepthReporter
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(queue DepthReporter, interval time.Duration) *MetricsCollector {
	return &MetricsCollector{
		queue:    queue,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic collection
func (mc *MetricsCollector) Start() {
	mc.wg.Add(1)
	go mc.collectLoop()
}

// Stop stops the collector
func (mc *MetricsCollector) Stop() {
	close(mc.stopCh)
	mc.wg.Wait()
}

func (mc *MetricsCollector) collectLoop() {
	defer mc.wg.Done()

	ticker := time.NewTicker(mc.interval)
	defer ticker.Stop()

	mc.collect()

	for {
		select {
		case <-ticker.C:
			mc.collect()
		case <-mc.stopCh:
			return
		}
	}
}

func (mc *MetricsCollector) collect() {
	QueueDepth.Set(float64(mc.queue.Len()))
}
