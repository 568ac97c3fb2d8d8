// Command epochd is the replica binary: `epochd run` loads and validates a
// replica config file and serves its metrics (it does not connect to other
// replicas), `epochd sim` drives an in-process Simulation of a whole
// cluster for local experimentation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "epochd",
	Short:   "epochd - a leaderless, conflict-aware replicated command ordering service",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"epochd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(simCmd)

	runCmd.Flags().String("config", "epochd.yaml", "Path to the replica config file")
	runCmd.Flags().String("metrics-addr", "", "Address to serve /metrics on (overrides config)")

	simCmd.Flags().String("config", "epochd.yaml", "Path to the cluster config file (n/f/variant apply to every simulated replica)")
	simCmd.Flags().Int("replicas", 3, "Number of replicas to simulate")
	simCmd.Flags().Int("commands", 10, "Number of put commands to submit, round-robin across replicas")
}
