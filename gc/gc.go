// Package gc implements the Garbage Collector of spec §4.7: each replica
// periodically advances its committed vector clock, broadcasts it, and
// reclaims CommandInfoTable entries once they're stable everywhere.
// Grounded on teacher_src/consensus/scope.go's periodic persistence/stat
// counters and original_source's src/protocol/common/table/mod.rs stable-set
// computation; the ticker-driven loop shape follows cuemby-warren's
// time.Ticker reconciliation loops.
package gc

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/epochdb/epochdb/proto"
	"github.com/epochdb/epochdb/table"
)

// Broadcaster sends a GarbageCollection message carrying this replica's
// committed clock to every other replica. Transport is out of scope (spec
// §1); the core only needs this narrow send capability.
type Broadcaster interface {
	BroadcastGarbageCollection(committed proto.VClock)
}

// StabilityRecorder is notified of newly stable dots for metrics purposes
// (spec §4.1 `stable(count)`).
type StabilityRecorder interface {
	Stable(count int)
}

// Collector runs the periodic GC protocol against a single replica's table.
type Collector struct {
	log    zerolog.Logger
	table  *table.Table
	bcast  Broadcaster
	stable StabilityRecorder
}

func New(t *table.Table, bcast Broadcaster, stable StabilityRecorder, log zerolog.Logger) *Collector {
	return &Collector{
		log:    log.With().Str("component", "gc").Logger(),
		table:  t,
		bcast:  bcast,
		stable: stable,
	}
}

// Tick runs one round: compute (my_committed, newly_stable), broadcast
// GarbageCollection{committed: my_committed} to every other replica, and
// apply Stable{stable: newly_stable} locally (spec §4.7 steps 1-3).
func (c *Collector) Tick() {
	committed, newlyStable := c.table.CommittedAndStable()
	c.bcast.BroadcastGarbageCollection(committed)
	c.HandleStable(newlyStable)
}

// HandleGarbageCollection applies an incoming GarbageCollection{committed}
// from peer, merging it into the table's recorded committed clock for that
// peer (spec §4.7; out-of-order messages are handled by CommittedBy's
// merge-never-decrease semantics).
func (c *Collector) HandleGarbageCollection(from proto.ProcessId, committed proto.VClock) {
	c.table.CommittedBy(from, committed)
}

// HandleStable removes stable dots from the table ("forward a Stable{...}
// to self for local cleanup", spec §4.7 step 3).
func (c *Collector) HandleStable(stable proto.VClock) {
	removed := c.table.GC(stable)
	if removed > 0 {
		c.log.Debug().Int("removed", removed).Msg("reclaimed stable dots")
	}
	if c.stable != nil {
		c.stable.Stable(removed)
	}
}

// Run drives Tick on interval until ctx is cancelled, the periodic
// GarbageCollection event of spec §4.3/§4.7/§6 (`gc_interval`).
func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}
