package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elektrokombinacija/trafficsim/internal/core"
	"github.com/elektrokombinacija/trafficsim/internal/sim"
)

// state is what readers see: the clock as of the end of a tick.
type state struct {
	snapshot sim.Snapshot
	metrics  sim.Metrics
}

// Runner owns a clock and is its only writer. Ticks run under a mutex;
// after each batch the resulting state is published atomically, so
// readers never observe a partial tick.
type Runner struct {
	mu    sync.Mutex
	clock *sim.Clock
	log   *slog.Logger

	current atomic.Pointer[state]
	records atomic.Pointer[[]core.TrafficRecord]
}

// NewRunner wraps clock. The caller must not touch clock afterwards.
func NewRunner(clock *sim.Clock, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	r := &Runner{clock: clock, log: log}
	r.publish()
	return r
}

func (r *Runner) publish() {
	r.current.Store(&state{
		snapshot: r.clock.Snapshot(),
		metrics:  r.clock.Metrics(),
	})
}

// Advance runs n ticks and returns the tick reached.
func (r *Runner) Advance(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < n; i++ {
		r.clock.Advance()
	}
	r.publish()
	return r.clock.Tick()
}

// Snapshot returns the last published state.
func (r *Runner) Snapshot() sim.Snapshot { return r.current.Load().snapshot }

// Metrics returns the metrics as of the last published state.
func (r *Runner) Metrics() sim.Metrics { return r.current.Load().metrics }

// SetRecords replaces the traffic observations fed to the optimizer.
func (r *Runner) SetRecords(recs []core.TrafficRecord) {
	cp := append([]core.TrafficRecord(nil), recs...)
	r.records.Store(&cp)
}

// Records returns the current traffic observations.
func (r *Runner) Records() []core.TrafficRecord {
	if p := r.records.Load(); p != nil {
		return *p
	}
	return nil
}

// Run advances one tick every interval until ctx is done. An interval of
// zero or less returns immediately.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			tick := r.Advance(1)
			if tick%100 == 0 {
				m := r.Metrics()
				r.log.Info("simulation progress",
					"tick", tick,
					"active", m.Active,
					"arrived", m.Arrived,
					"failed", m.Failed,
				)
			}
		}
	}
}
