package main

import (
	"context"

	"gamcsv/internal/config"
	"gamcsv/internal/metrics"
	"gamcsv/internal/metrics/datadog"
)

// initMetrics installs the configured metrics backend and returns its
// shutdown function, which restores the previous backend after a final
// flush.
func initMetrics(ctx context.Context, opts config.Options, runID string) (func() error, error) {
	if opts.Metrics != "datadog" {
		return func() error { return nil }, nil
	}

	tags := append([]string{"run_id:" + runID}, opts.MetricsTags...)
	b, err := datadog.NewBackend(ctx, datadog.Options{
		JobName:    "gamcsv",
		Tags:       tags,
		FlushEvery: opts.FlushEvery(),
	})
	if err != nil {
		return nil, err
	}
	prev := metrics.SetBackend(b)
	return func() error {
		metrics.SetBackend(prev)
		return b.Close()
	}, nil
}
