// Package jobmain holds the startup sequence shared by the job binaries.
package jobmain

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/homemade/nbsync/logging"
	"github.com/homemade/nbsync/metrics"
	"github.com/homemade/nbsync/sync"
)

// Run configures and runs job until it fails or the process is signalled,
// and returns the process exit code.
func Run(job string) int {
	sync.Init()

	cfg, err := sync.LoadConfigFromEnvironment(job)
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		logging.Error().Err(err).Msg("failed to load config")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := metrics.Serve(cfg.MetricsAddr, func(err error) {
			logging.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics server failed")
		})
		defer srv.Close()
	}

	j, err := sync.NewJob(sync.NewSyncContext(cfg))
	if err != nil {
		logging.Error().Err(err).Msg("failed to create job")
		return 1
	}

	if err = j.Run(ctx); err != nil {
		logging.Error().Err(err).Str("job", cfg.Job).Msg("job failed")
		return 1
	}
	return 0
}
