// towerstack is a physics tower defense: stack blocks swinging from a rope
// and keep the enemies away from home.
//
// Usage:
//
//	towerstack play    - Open the game window
//	towerstack sim     - Run the simulation headless and print a report
//
// Global flags:
//
//	--seed <value>  - RNG seed for reproducible runs
//	--config <dir>  - Directory with tuning yaml overriding the built-in prefabs
//	--debug         - Debug logging and overlays
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/milk9111/towerstack/prefabs"
	"github.com/spf13/cobra"
)

var (
	flagSeed   int64
	flagConfig string
	flagDebug  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "towerstack",
	Short: "Stack a tower, hold off the waves",
	Long: `towerstack drops blocks from a swinging rope onto a physics-driven
tower. Placed blocks shoot at the enemies walking toward home; an enemy
reaching home ends the game.

Examples:
  towerstack play
  towerstack play --seed 7 --watch
  towerstack sim --seconds 120 --drop-every 1.5`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Directory with tuning yaml")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging and overlays")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(simCmd)
}

func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "towerstack",
	})
	if flagDebug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func resolveSeed() int64 {
	if flagSeed != 0 {
		return flagSeed
	}
	return time.Now().UnixNano()
}

func loadSpec() (*prefabs.GameSpec, error) {
	spec, err := prefabs.LoadGameSpec(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("load tuning: %w", err)
	}
	return spec, nil
}
