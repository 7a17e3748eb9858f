package main

import (
	"log/slog"
	"time"

	"github.com/rdocs/rd2qmd/internal/pkgindex"
)

// SweepCacheCmd is a one-shot equivalent of internal/housekeeper's periodic
// sweep, for operators who run rd2qmd from cron rather than keeping a
// long-lived process around.
type SweepCacheCmd struct {
	CacheDir    string        `arg:"" type:"path" help:"Disk cache directory to sweep"`
	NegativeTTL time.Duration `help:"Remove negative entries older than this" default:"24h"`
}

func (c *SweepCacheCmd) Run() int {
	resolver := pkgindex.New(nil, c.CacheDir)
	removed, err := resolver.SweepNegativeCache(c.NegativeTTL)
	if err != nil {
		slog.Error("cache sweep failed", "error", err)
		return 3
	}
	slog.Info("cache sweep complete", "removed", removed)
	return 0
}
