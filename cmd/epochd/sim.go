package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/epochdb/epochdb/config"
	"github.com/epochdb/epochdb/internal/logging"
	"github.com/epochdb/epochdb/internal/metrics"
	"github.com/epochdb/epochdb/proto"
	"github.com/epochdb/epochdb/sim"
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run an in-process cluster simulation and submit a batch of commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		logLevel, _ := cmd.Flags().GetString("log-level")
		logJSON, _ := cmd.Flags().GetBool("log-json")
		configPath, _ := cmd.Flags().GetString("config")
		replicaCount, _ := cmd.Flags().GetInt("replicas")
		commandCount, _ := cmd.Flags().GetInt("commands")

		log := logging.New(logging.Config{Level: logging.Level(logLevel), JSONOutput: logJSON})

		cfg, err := config.Load(configPath)
		if err != nil {
			log.Warn().Err(err).Str("path", configPath).Msg("could not load config, using defaults")
			cfg = config.Default()
		}
		cfg.N = replicaCount
		if 2*cfg.F+1 > cfg.N {
			cfg.F = (cfg.N - 1) / 2
		}

		ids := make([]proto.ProcessId, replicaCount)
		for i := range ids {
			ids[i] = proto.ProcessId(i + 1)
		}

		reg := metrics.New(prometheus.NewRegistry())
		s := sim.New(cfg, ids, reg, log)

		client := proto.ClientId(uuid.New().String())
		for i := 0; i < commandCount; i++ {
			coordinator := ids[i%len(ids)]
			key := fmt.Sprintf("key-%d", i%3)
			rifl := proto.NewRifl(client, uint64(i+1))
			c := proto.NewCommand(rifl, map[string]proto.Op{
				key: proto.Put([]byte(fmt.Sprintf("value-%d", i))),
			})
			dot, err := s.Submit(coordinator, c)
			if err != nil {
				log.Error().Err(err).Int("i", i).Msg("submit failed")
				continue
			}
			log.Info().Stringer("dot", dot).Uint64("coordinator", uint64(coordinator)).Str("key", key).Msg("committed")
		}

		s.Tick()
		for _, result := range s.Results() {
			log.Info().Stringer("rifl", result.Rifl).Int("keys", len(result.Prior)).Msg("delivered result")
		}

		return nil
	},
}
