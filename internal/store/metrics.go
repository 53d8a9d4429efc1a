package store

import (
	"time"

	"github.com/eventsync/eventsync/internal/metrics"
)

func observeDB(operation string) func() {
	start := time.Now()
	return func() {
		metrics.ObserveDBLatency(operation, start)
	}
}
