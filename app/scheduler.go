package app

import (
	"log"
	"time"

	"deskgraph/scanner"
)

// defaultScheduleMinutes is used when a scanner config omits its schedule.
const defaultScheduleMinutes = 5

// ScanScheduler runs one scanner's evaluation loop on its configured
// interval.
type ScanScheduler struct {
	pipeline  *Pipeline
	evaluator *scanner.Evaluator
	done      chan bool
}

// NewScanScheduler creates a scheduler for one scanner
func NewScanScheduler(pipeline *Pipeline, evaluator *scanner.Evaluator) *ScanScheduler {
	return &ScanScheduler{
		pipeline:  pipeline,
		evaluator: evaluator,
		done:      make(chan bool),
	}
}

// Start begins the scan loop
func (ss *ScanScheduler) Start() {
	cfg := ss.evaluator.Config()
	minutes := cfg.ScannerConfig.ScheduleMinutes
	if minutes <= 0 {
		minutes = defaultScheduleMinutes
	}

	log.Printf("🚀 Scanner %s started (every %d minutes)", cfg.Name, minutes)

	ticker := time.NewTicker(time.Duration(minutes) * time.Minute)
	defer ticker.Stop()

	// First scan runs immediately rather than after a full interval.
	ss.pipeline.RunScan(ss.evaluator)

	for {
		select {
		case <-ticker.C:
			ss.pipeline.RunScan(ss.evaluator)
		case <-ss.done:
			log.Printf("🛑 Scanner %s stopped", cfg.Name)
			return
		}
	}
}

// Stop stops the scan loop
func (ss *ScanScheduler) Stop() {
	ss.done <- true
}
