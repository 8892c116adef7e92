package metrics

import (
	"sync"
	"time"

	"photo-wallet/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current statistics
type Stats struct {
	ActivePhotos   int
	ArchivedPhotos int
	Capacity       int
	ContentBytes   int64
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection. Safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

// Name identifies the collector among background workers.
func (c *Collector) Name() string {
	return "metrics-collector"
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	PhotosTotal.WithLabelValues("active").Set(float64(stats.ActivePhotos))
	PhotosTotal.WithLabelValues("archived").Set(float64(stats.ArchivedPhotos))
	CapacityTotal.Set(float64(stats.Capacity))
	DBSizeBytes.Set(float64(stats.ContentBytes))

	logging.Debug("Metrics collected: active=%d, archived=%d, capacity=%d, bytes=%d",
		stats.ActivePhotos, stats.ArchivedPhotos, stats.Capacity, stats.ContentBytes)
}
