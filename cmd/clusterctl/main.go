package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	assumeYes  bool
	wanTuning  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clusterctl",
		Short: "clusterctl - cluster membership lifecycle orchestrator",
		Long: `clusterctl forms, expands and contracts a small fixed-membership
compute cluster without violating quorum, and tunes consensus timing
for wide-area links.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Skip confirmation prompts")
	rootCmd.PersistentFlags().BoolVar(&wanTuning, "wan", false, "Apply WAN timing tuning after a successful membership operation")

	// Add subcommands
	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(joinCmd())
	rootCmd.AddCommand(addOthersCmd())
	rootCmd.AddCommand(removeNodeCmd())
	rootCmd.AddCommand(leaveCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(tuneCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(level, format string) {
	if parsed, err := log.ParseLevel(level); err == nil {
		log.SetLevel(parsed)
	}
	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}
