package main

import (
	"strings"
	"testing"

	"github.com/milk9111/towerstack/sim"
)

func TestPlainReport(t *testing.T) {
	stats := sim.Stats{
		Elapsed:    12.5,
		EnergyRate: 1.5,
		Steps:      750,
		Wave:       3,
		Energy:     42,
		Gold:       120,
		Upgrades:   1,
		Placed:     6,
		Spawned:    9,
		Defeated:   7,
		Blocks:     5,
		Enemies:    2,
	}

	tests := []struct {
		name     string
		gameOver bool
		want     []string
	}{
		{"held", false, []string{"Seed          7", "Time          12.5s", "Wave          3", "Energy rate   1.5/s after 1 upgrades", "6 placed, 0 lost, 5 standing", "9 spawned, 7 defeated, 2 alive", "HELD"}},
		{"lost", true, []string{"GAME OVER"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := stats
			s.GameOver = tt.gameOver
			got := plainReport(7, s)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Fatalf("report missing %q:\n%s", want, got)
				}
			}
		})
	}
}

func TestRenderReportContainsRows(t *testing.T) {
	got := renderReport(99, sim.Stats{Wave: 2, GameOver: true})
	for _, want := range []string{"towerstack run", "Seed", "99", "Wave", "GAME OVER"} {
		if !strings.Contains(got, want) {
			t.Fatalf("styled report missing %q:\n%s", want, got)
		}
	}
}
