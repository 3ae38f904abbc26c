// Package stats keeps process-wide job tallies since boot.
package stats

import (
	"sync/atomic"
	"time"
)

// Counters counts completed jobs. The zero value is ready to use.
type Counters struct {
	conversions atomic.Int64
	merges      atomic.Int64
	startedAt   time.Time
}

// New returns counters stamped with the boot time.
func New() *Counters {
	return &Counters{startedAt: time.Now()}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	ConversionsCompleted int64     `json:"conversions_completed"`
	MergesCompleted      int64     `json:"merges_completed"`
	Since                time.Time `json:"since"`
}

func (c *Counters) IncConversions() { c.conversions.Add(1) }

func (c *Counters) IncMerges() { c.merges.Add(1) }

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		ConversionsCompleted: c.conversions.Load(),
		MergesCompleted:      c.merges.Load(),
		Since:                c.startedAt,
	}
}
