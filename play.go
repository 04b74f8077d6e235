package main

import (
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/towerstack/prefabs"
	"github.com/spf13/cobra"
)

var flagWatch bool

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Open the game window",
	Long: `Open the game window.

Controls:
  Click/Space/Down - Drop the block
  U                - Upgrade energy rate with gold
  P/Esc            - Pause
  R                - Restart`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().BoolVar(&flagWatch, "watch", false, "Reload tuning when prefab files change")
}

func runPlay(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	spec, err := loadSpec()
	if err != nil {
		return err
	}

	game, err := NewGame(spec, GameOptions{
		Seed:   resolveSeed(),
		Debug:  flagDebug,
		Logger: logger,
		Reload: loadSpec,
	})
	if err != nil {
		return err
	}

	if flagWatch {
		var dirs []string
		for _, dir := range []string{"prefabs", "prefabs/scripts", flagConfig} {
			if info, err := os.Stat(dir); dir != "" && err == nil && info.IsDir() {
				dirs = append(dirs, dir)
			}
		}
		watcher, err := prefabs.NewWatcher(logger, dirs...)
		if err != nil {
			logger.Warn("tuning watcher disabled", "err", err)
		} else {
			defer watcher.Close()
			game.watcher = watcher
		}
	}

	ebiten.SetWindowSize(int(spec.World.Viewport.Width), int(spec.World.Viewport.Height))
	ebiten.SetWindowTitle("towerstack")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(game)
}
