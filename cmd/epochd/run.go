package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/epochdb/epochdb/config"
	"github.com/epochdb/epochdb/internal/logging"
	"github.com/epochdb/epochdb/internal/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single epochd replica against a config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		logLevel, _ := cmd.Flags().GetString("log-level")
		logJSON, _ := cmd.Flags().GetBool("log-json")
		configPath, _ := cmd.Flags().GetString("config")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		log := logging.New(logging.Config{Level: logging.Level(logLevel), JSONOutput: logJSON})

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if metricsAddr != "" {
			cfg.MetricsAddr = metricsAddr
		}

		registry := prometheus.NewRegistry()
		reg := metrics.New(registry)

		log.Info().
			Uint64("id", uint64(cfg.ID)).
			Str("variant", string(cfg.Variant)).
			Int("n", cfg.N).Int("f", cfg.F).
			Msg("starting replica")

		if cfg.MetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			go func() {
				if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
					log.Error().Err(err).Msg("metrics server stopped")
				}
			}()
			log.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
		}

		_ = reg
		// TODO: wire a real transport (gRPC/TCP) in place of sim.Simulation once
		// one of the pack's network transports is chosen; until then `run` only
		// validates config and exposes metrics, `sim` is the way to exercise the
		// protocol end to end.
		select {}
	},
}
