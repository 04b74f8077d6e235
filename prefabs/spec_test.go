package prefabs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGameSpecDefaults(t *testing.T) {
	spec, err := LoadGameSpec("")
	if err != nil {
		t.Fatalf("LoadGameSpec: %v", err)
	}

	if spec.World.Loop.MaxSubSteps <= 0 || spec.World.Loop.FixedStep <= 0 {
		t.Fatalf("loop timing not loaded: %+v", spec.World.Loop)
	}
	if got := spec.Economy.Start.Energy; got != 30 {
		t.Fatalf("expected starting energy 30, got %v", got)
	}

	costs := map[string]float64{"plank": 5, "square": 10, "lshape": 10}
	for blockType, want := range costs {
		if got := spec.Economy.Costs[blockType]; got != want {
			t.Fatalf("cost of %s: expected %v, got %v", blockType, want, got)
		}
	}

	lshape, ok := spec.Blocks.Block("lshape")
	if !ok {
		t.Fatalf("lshape missing from catalog")
	}
	if lshape.Weapon {
		t.Fatalf("lshape must not carry a weapon")
	}

	wood := spec.Blocks.Materials["wood"].Density
	metal := spec.Blocks.Materials["metal"].Density
	stone := spec.Blocks.Materials["stone"].Density
	if !(stone > metal && metal > wood) {
		t.Fatalf("density ordering broken: stone=%v metal=%v wood=%v", stone, metal, wood)
	}
}

func TestGroundGeometry(t *testing.T) {
	w := WorldSpec{
		Viewport: ViewportSpec{Width: 800, Height: 600},
		Ground:   GroundSpec{Height: 50, Offset: 25},
		Home:     HomeSpec{X: 100, AboveGround: 30},
	}
	if got := w.GroundTop(); got != 550 {
		t.Fatalf("expected ground top 550, got %v", got)
	}
	x, y := w.HomePosition()
	if x != 100 || y != 520 {
		t.Fatalf("expected home (100,520), got (%v,%v)", x, y)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*GameSpec)
	}{
		{"zero_viewport", func(s *GameSpec) { s.World.Viewport.Width = 0 }},
		{"zero_step", func(s *GameSpec) { s.World.Loop.FixedStep = 0 }},
		{"unknown_material", func(s *GameSpec) { s.Blocks.Catalog[0].Material = "glass" }},
		{"missing_cost", func(s *GameSpec) { delete(s.Economy.Costs, s.Blocks.Catalog[0].Type) }},
		{"negative_upgrade_cost", func(s *GameSpec) { s.Economy.Upgrade.GoldCost = -1 }},
		{"unknown_enemy", func(s *GameSpec) { s.Waves.Table[0].Types = []string{"dragon"} }},
		{"empty_table", func(s *GameSpec) { s.Waves.Table = nil }},
		{"bad_first_block", func(s *GameSpec) { s.Blocks.Placement.FirstBlock = "tower" }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			spec := MustDefault()
			c.mutate(spec)
			err := spec.Validate()
			if !errors.Is(err, ErrInvalidSpec) {
				t.Fatalf("expected ErrInvalidSpec, got %v", err)
			}
		})
	}
}

func TestLoadFromCustomDir(t *testing.T) {
	dir := t.TempDir()
	custom := []byte("start:\n  energy: 99\n  gold: 1\nrates:\n  energy: 2\ncosts:\n  plank: 1\n  square: 1\n  lshape: 1\n")
	if err := os.WriteFile(filepath.Join(dir, EconomyFile), custom, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	spec, err := LoadGameSpec(dir)
	if err != nil {
		t.Fatalf("LoadGameSpec: %v", err)
	}
	if spec.Economy.Start.Energy != 99 || spec.Economy.Rates.Energy != 2 {
		t.Fatalf("custom economy not used: %+v", spec.Economy)
	}
	if len(spec.Waves.Table) == 0 {
		t.Fatalf("files missing from the custom dir should fall back to the defaults")
	}
}

func TestLoadScript(t *testing.T) {
	data, err := LoadScript("waves.tengo")
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected script contents")
	}
}
