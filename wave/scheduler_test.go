package wave

import (
	"errors"
	"io"
	"math/rand"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/milk9111/towerstack/economy"
	"github.com/milk9111/towerstack/ecs"
	"github.com/milk9111/towerstack/prefabs"
)

type recorder struct {
	spawned []string
	rewards []economy.Reward
	fail    bool
}

func (r *recorder) Spawn(enemyType string) error {
	if r.fail {
		return errors.New("no room")
	}
	r.spawned = append(r.spawned, enemyType)
	return nil
}

func (r *recorder) AddReward(reward economy.Reward) {
	r.rewards = append(r.rewards, reward)
}

func oneWaveSpec() prefabs.WavesSpec {
	return prefabs.WavesSpec{
		FirstCountdown:  1,
		Interval:        5,
		SpawnInterval:   1,
		ProceduralTypes: []string{"balanced", "fast", "heavy"},
		ExtraEnemies:    1,
		ExtraReward:     prefabs.RewardSpec{Energy: 5, Gold: 5},
		Table: []prefabs.WaveSpec{
			{Enemies: 3, Types: []string{"balanced"}, Reward: prefabs.RewardSpec{Energy: 20, Gold: 5}},
		},
	}
}

func newTestScheduler(spec prefabs.WavesSpec, rec *recorder, events *ecs.EventQueue) *Scheduler {
	return NewScheduler(spec, Options{
		Spawner:  rec,
		Rewarder: rec,
		Events:   events,
		Rand:     rand.New(rand.NewSource(7)),
		Logger:   log.New(io.Discard),
	})
}

func TestTableWaveRewardsOnce(t *testing.T) {
	rec := &recorder{}
	events := &ecs.EventQueue{}
	s := newTestScheduler(oneWaveSpec(), rec, events)

	for i := 0; i < 3; i++ {
		s.Update(1)
	}
	if len(rec.spawned) != 3 {
		t.Fatalf("expected 3 spawns, got %d", len(rec.spawned))
	}
	if s.Complete() {
		t.Fatalf("wave cannot be complete with living enemies")
	}

	for i := 0; i < 3; i++ {
		s.EnemyDefeated()
	}
	if !s.Complete() {
		t.Fatalf("wave should be complete after 3 defeats")
	}

	s.Update(0.1)
	if len(rec.rewards) != 1 || rec.rewards[0] != (economy.Reward{Energy: 20, Gold: 5}) {
		t.Fatalf("expected a single 20/5 reward, got %+v", rec.rewards)
	}
	if st := s.State(); st.Index != 1 || st.Phase != Waiting {
		t.Fatalf("expected to wait for wave index 1, got %+v", st)
	}

	for i := 0; i < 3; i++ {
		s.Update(0.1)
	}
	if len(rec.rewards) != 1 {
		t.Fatalf("reward issued again: %+v", rec.rewards)
	}

	var completed int
	for _, evt := range events.Drain() {
		if evt.Type == ecs.EventWaveCompleted {
			completed++
		}
	}
	if completed != 1 {
		t.Fatalf("expected one completion event, got %d", completed)
	}
}

func TestProcessedNeverExceedsSpawned(t *testing.T) {
	rec := &recorder{}
	s := newTestScheduler(oneWaveSpec(), rec, nil)

	s.EnemyDefeated()
	if st := s.State(); st.Defeated != 0 {
		t.Fatalf("defeat counted while waiting: %+v", st)
	}

	s.Update(1)
	for i := 0; i < 5; i++ {
		s.EnemyDefeated()
		st := s.State()
		if st.Defeated+st.ReachedHome > st.Total || st.Defeated+st.ReachedHome > st.Total-st.ToSpawn {
			t.Fatalf("processed count escaped its bound: %+v", st)
		}
	}
}

func TestReachedHomeIsTerminal(t *testing.T) {
	rec := &recorder{}
	s := newTestScheduler(oneWaveSpec(), rec, nil)

	s.Update(1)
	s.EnemyReachedHome()
	if !s.GameOver() {
		t.Fatalf("breach must end the game")
	}

	for i := 0; i < 100; i++ {
		s.Update(1)
	}
	if !s.GameOver() {
		t.Fatalf("game over reverted")
	}
	if len(rec.spawned) != 1 {
		t.Fatalf("spawning continued after game over: %d", len(rec.spawned))
	}
	if len(rec.rewards) != 0 {
		t.Fatalf("rewards issued after game over")
	}
	if got := s.StatusText(); got != "GAME OVER!" {
		t.Fatalf("unexpected status %q", got)
	}

	s.Reset()
	if s.GameOver() {
		t.Fatalf("Reset should clear game over")
	}
}

func TestStatusText(t *testing.T) {
	spec := oneWaveSpec()
	spec.FirstCountdown = 7
	s := newTestScheduler(spec, &recorder{}, nil)

	if got := s.StatusText(); got != "Next wave in 7s" {
		t.Fatalf("unexpected status %q", got)
	}
	s.Update(6.5)
	if got := s.StatusText(); got != "Next wave in 1s" {
		t.Fatalf("unexpected status %q", got)
	}
	s.Update(0.5)
	if got := s.StatusText(); got != "3 enemies left" {
		t.Fatalf("unexpected status %q", got)
	}
}

func TestFailedSpawnShrinksWave(t *testing.T) {
	rec := &recorder{fail: true}
	s := newTestScheduler(oneWaveSpec(), rec, nil)

	for i := 0; i < 3; i++ {
		s.Update(1)
	}
	s.Update(0.1)
	if len(rec.rewards) != 1 {
		t.Fatalf("a wave whose spawns all failed should still complete")
	}
}

func TestProceduralWaveAfterTable(t *testing.T) {
	rec := &recorder{}
	s := newTestScheduler(oneWaveSpec(), rec, nil)

	for i := 0; i < 3; i++ {
		s.Update(1)
	}
	for i := 0; i < 3; i++ {
		s.EnemyDefeated()
	}
	s.Update(0.1)
	s.Update(5)

	st := s.State()
	if st.Phase != Active || st.Current.Enemies != 4 {
		t.Fatalf("expected an active 4 enemy wave, got %+v", st)
	}
	if st.Current.Reward != (economy.Reward{Energy: 25, Gold: 10}) {
		t.Fatalf("unexpected reward %+v", st.Current.Reward)
	}
	if len(st.Current.Types) == 0 || st.Current.Types[0] != "balanced" {
		t.Fatalf("prior types should carry over, got %v", st.Current.Types)
	}

	before := append([]string(nil), st.Current.Types...)
	s.Update(1)
	if !reflect.DeepEqual(before, s.State().Current.Types) {
		t.Fatalf("composition changed mid-wave")
	}
}

func TestGeneratorsAgree(t *testing.T) {
	src, err := prefabs.LoadScript("waves.tengo")
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	script, err := NewScriptGenerator(src)
	if err != nil {
		t.Fatalf("NewScriptGenerator: %v", err)
	}

	last := Definition{Enemies: 6, Types: []string{"balanced", "fast"}, Reward: economy.Reward{Energy: 35, Gold: 20}}
	cases := []struct {
		name  string
		extra int
		prior []string
		rolls []float64
	}{
		{"keep_prior", 1, []string{"balanced", "fast"}, []float64{0.1, 0.2, 0.3}},
		{"add_heavy", 2, []string{"balanced"}, []float64{0.9, 0.1, 0.7}},
		{"empty_prior", 3, nil, []float64{0.1, 0.1, 0.1}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := Request{
				Extra:        c.extra,
				Last:         last,
				Prior:        Definition{Types: c.prior},
				Candidates:   []string{"balanced", "fast", "heavy"},
				Rolls:        c.rolls,
				ExtraEnemies: 1,
				ExtraReward:  economy.Reward{Energy: 5, Gold: 5},
			}
			want, err := ProceduralGenerator{}.Generate(req)
			if err != nil {
				t.Fatalf("procedural: %v", err)
			}
			got, err := script.Generate(req)
			if err != nil {
				t.Fatalf("script: %v", err)
			}
			if !reflect.DeepEqual(want, got) {
				t.Fatalf("generators disagree: go=%+v script=%+v", want, got)
			}
			if want.Enemies != last.Enemies+c.extra {
				t.Fatalf("expected %d enemies, got %d", last.Enemies+c.extra, want.Enemies)
			}
		})
	}
}

func TestScriptFailureFallsBack(t *testing.T) {
	if _, err := NewScriptGenerator([]byte("enemies := ")); err == nil {
		t.Fatalf("expected compile error")
	}

	broken, err := NewScriptGenerator([]byte("enemies := 0\ntypes := []\nreward_energy := 0\nreward_gold := 0"))
	if err != nil {
		t.Fatalf("NewScriptGenerator: %v", err)
	}
	req := Request{
		Extra:        1,
		Last:         Definition{Enemies: 3, Types: []string{"balanced"}},
		Candidates:   []string{"balanced"},
		Rolls:        []float64{0},
		ExtraEnemies: 1,
	}
	if _, err := broken.Generate(req); !errors.Is(err, ErrBadDefinition) {
		t.Fatalf("expected ErrBadDefinition, got %v", err)
	}

	gen := FallbackGenerator{Primary: broken, Fallback: ProceduralGenerator{}, Logger: log.New(io.Discard)}
	def, err := gen.Generate(req)
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if def.Enemies != 4 {
		t.Fatalf("expected fallback definition, got %+v", def)
	}
}
