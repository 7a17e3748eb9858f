package main

import (
	"context"
	"log/slog"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rdocs/rd2qmd/internal/metrics"
)

// setupMetrics starts a Prometheus HTTP endpoint when addr is non-empty, so
// resolver failures are visible as a scrapeable counter rather than only a
// log line.
func setupMetrics(addr string) (metrics.Recorder, func(context.Context) error) {
	if addr == "" {
		return metrics.NoopRecorder{}, nil
	}

	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server stopped unexpectedly", "error", err)
		}
	}()
	slog.Info("metrics endpoint listening", "addr", addr)

	return rec, srv.Shutdown
}
