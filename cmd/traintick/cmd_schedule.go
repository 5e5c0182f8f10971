package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stratforge/traintick/internal/schedule"
	"github.com/stratforge/traintick/internal/telemetry"
	"github.com/stratforge/traintick/internal/train"
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run optimization on a recurring schedule",
		Long: `Starts a long-lived process that re-optimizes all configured strategies
on a cron schedule and exposes Prometheus metrics while running.`,
		RunE: runSchedule,
	}
	cmd.Flags().String("config", "configs/train.yaml", "Training configuration file")
	cmd.Flags().String("cron", "0 3 * * 2-6", "Cron expression (default: 03:00 Tue-Sat, after the trading day closes)")
	cmd.Flags().Bool("run-on-start", false, "Trigger one run immediately on startup")
	cmd.Flags().Int("metrics-port", 0, "Serve /metrics on this port; 0 disables")
	return cmd
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cronSpec, _ := cmd.Flags().GetString("cron")
	runOnStart, _ := cmd.Flags().GetBool("run-on-start")
	metricsPort, _ := cmd.Flags().GetInt("metrics-port")

	cfg, err := train.LoadConfig(configPath)
	if err != nil {
		return err
	}
	lg, err := openLedger(cfg.LedgerPath)
	if err != nil {
		return err
	}
	defer lg.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	metrics := telemetry.NewMetricsRegistry()
	var server *telemetry.Server
	if metricsPort > 0 {
		serverCfg := telemetry.DefaultServerConfig()
		serverCfg.Port = metricsPort
		server, err = telemetry.NewServer(serverCfg, metrics)
		if err != nil {
			return err
		}
		go func() {
			if err := server.Start(); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	scheduler := schedule.NewScheduler(ctx, cfg, lg, metrics)
	if err := scheduler.Register(cronSpec); err != nil {
		return err
	}
	scheduler.Start()
	log.Info().Str("cron", cronSpec).Msg("schedule active")

	if runOnStart {
		go scheduler.RunNow()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	cancel()
	scheduler.Stop()
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("metrics server shutdown")
		}
	}
	return nil
}
