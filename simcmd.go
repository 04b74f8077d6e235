package main

import (
	"fmt"

	"github.com/milk9111/towerstack/sim"
	"github.com/spf13/cobra"
	"golang.design/x/clipboard"
)

var (
	flagSeconds   float64
	flagDropEvery float64
	flagCopy      bool
	flagUpgrade   bool
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run the simulation headless and print a report",
	Long: `Run the simulation without a window. A scripted input drops a block
at a fixed interval; the run ends when the time is up or an enemy
reaches home.`,
	Args: cobra.NoArgs,
	RunE: runSim,
}

func init() {
	simCmd.Flags().Float64Var(&flagSeconds, "seconds", 60, "Simulated seconds to run")
	simCmd.Flags().Float64Var(&flagDropEvery, "drop-every", 1.5, "Seconds between scripted drops (0 = never drop)")
	simCmd.Flags().BoolVar(&flagCopy, "copy", false, "Copy the report to the clipboard")
	simCmd.Flags().BoolVar(&flagUpgrade, "upgrade", false, "Buy energy rate upgrades whenever gold allows")
}

func runSim(cmd *cobra.Command, args []string) error {
	if flagSeconds <= 0 {
		return fmt.Errorf("--seconds must be positive, got %v", flagSeconds)
	}
	logger := newLogger()
	spec, err := loadSpec()
	if err != nil {
		return err
	}

	seed := resolveSeed()
	step := spec.World.Loop.FixedStep
	loop, err := sim.New(spec, sim.Options{
		Seed:   seed,
		Input:  sim.NewTimedInput(flagDropEvery, step),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	stats := runHeadless(loop, flagSeconds, step, flagUpgrade)
	report := renderReport(seed, stats)
	fmt.Fprintln(cmd.OutOrStdout(), report)

	if flagCopy {
		if err := clipboard.Init(); err != nil {
			logger.Warn("clipboard unavailable", "err", err)
			return nil
		}
		clipboard.Write(clipboard.FmtText, []byte(plainReport(seed, stats)))
		logger.Info("report copied to clipboard")
	}
	return nil
}

// runHeadless steps the loop one fixed step at a time until the budget runs
// out or the game ends. With upgrade set, gold goes into energy rate upgrades
// as soon as it covers one.
func runHeadless(loop *sim.Loop, seconds, step float64, upgrade bool) sim.Stats {
	loop.Start()
	defer loop.Stop()
	for elapsed := 0.0; elapsed < seconds; elapsed += step {
		if upgrade {
			loop.UpgradeEnergyRate()
		}
		loop.Step(step)
		if loop.GameOver() {
			break
		}
	}
	return loop.Stats()
}
