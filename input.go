package main

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Input reads the drop channels once per ebiten tick. The loop may sample it
// several times in one tick; only the first sample polls the devices.
type Input struct {
	lastTick int64
	drop     bool
	x, y     float64
}

func NewInput() *Input {
	return &Input{lastTick: -1}
}

func (in *Input) Update() {
	tick := ebiten.Tick()
	if tick == in.lastTick {
		return
	}
	in.lastTick = tick

	drop := inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) ||
		inpututil.IsKeyJustPressed(ebiten.KeySpace) ||
		inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) ||
		len(inpututil.AppendJustReleasedTouchIDs(nil)) > 0

	if gamepads := ebiten.GamepadIDs(); len(gamepads) > 0 {
		id := gamepads[0]
		drop = drop || inpututil.IsStandardGamepadButtonJustPressed(id, ebiten.StandardGamepadButtonRightBottom)
	}
	if drop {
		in.drop = true
	}

	cx, cy := ebiten.CursorPosition()
	in.x, in.y = float64(cx), float64(cy)
}

func (in *Input) DropRequested() bool {
	if !in.drop {
		return false
	}
	in.drop = false
	return true
}

func (in *Input) Pointer() (float64, float64) {
	return in.x, in.y
}
