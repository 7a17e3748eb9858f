// Package housekeeper runs periodic cache maintenance for a long-lived host
// process embedding the converter core — sweeping negative pkgindex cache
// entries so a package that gains a pkgdown site later gets retried.
//
// It is entirely opt-in: a Resolver used without a Housekeeper keeps its
// cache scoped to one process invocation, exactly as if Housekeeper didn't
// exist.
package housekeeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/rdocs/rd2qmd/internal/logfields"
)

// Sweeper is the minimal interface a cache must expose for housekeeping.
// *pkgindex.Resolver satisfies it.
type Sweeper interface {
	SweepNegativeCache(ttl time.Duration) (removed int, err error)
}

// Housekeeper periodically sweeps a Sweeper's negative cache entries.
type Housekeeper struct {
	scheduler gocron.Scheduler
	sweeper   Sweeper
	ttl       time.Duration
}

// New constructs a Housekeeper that sweeps sweeper's negative cache entries
// older than negativeTTL. The sweep interval is given to Start.
func New(sweeper Sweeper, negativeTTL time.Duration) (*Housekeeper, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("housekeeper: creating scheduler: %w", err)
	}
	return &Housekeeper{scheduler: s, sweeper: sweeper, ttl: negativeTTL}, nil
}

// Start schedules the sweep to run every interval and begins the scheduler.
// It returns the job's ID for later inspection.
func (h *Housekeeper) Start(interval time.Duration) (string, error) {
	job, err := h.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(h.sweep),
		gocron.WithName("pkgindex-negative-cache-sweep"),
	)
	if err != nil {
		return "", fmt.Errorf("housekeeper: scheduling sweep: %w", err)
	}
	h.scheduler.Start()
	return job.ID().String(), nil
}

// Stop gracefully shuts down the scheduler.
func (h *Housekeeper) Stop(ctx context.Context) error {
	return h.scheduler.Shutdown()
}

func (h *Housekeeper) sweep() {
	removed, err := h.sweeper.SweepNegativeCache(h.ttl)
	if err != nil {
		slog.Warn("housekeeper: negative cache sweep failed", logfields.Error(err))
		return
	}
	if removed > 0 {
		slog.Info("housekeeper: swept negative cache entries", slog.Int("removed", removed))
	}
}
