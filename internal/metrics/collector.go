package metrics

import (
	"time"

	"hevc-shrink/internal/logging"
)

// StatsProvider supplies totals from the history database.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds history totals.
type Stats struct {
	// ByStatus counts recorded conversions per status label.
	ByStatus   map[string]int
	BytesSaved int64
}

// Collector periodically copies history totals into gauges.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	done          chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the collection loop and waits for it to exit.
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.done
}

func (c *Collector) collectLoop() {
	defer close(c.done)

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

	for _, s := range StatusLabels {
		HistoryConversions.WithLabelValues(s).Set(float64(stats.ByStatus[s]))
	}
	HistoryBytesSaved.Set(float64(stats.BytesSaved))

	logging.Debug("History metrics collected: %v, saved=%d bytes", stats.ByStatus, stats.BytesSaved)
}
