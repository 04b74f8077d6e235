package wave

import (
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/towerstack/economy"
)

var ErrBadDefinition = errors.New("wave: bad definition")

// Definition is the composition and payout of one wave.
type Definition struct {
	Enemies int
	Types   []string
	Reward  economy.Reward
}

// Request describes a wave past the end of the table.
type Request struct {
	// Extra is 1 for the first wave after the table.
	Extra int
	// Last is the final table wave.
	Last Definition
	// Prior is the wave that was just played.
	Prior Definition
	// Candidates may join the wave; Rolls holds one roll in [0,1) for each.
	Candidates   []string
	Rolls        []float64
	ExtraEnemies int
	ExtraReward  economy.Reward
}

// Generator synthesizes waves beyond the predefined table.
type Generator interface {
	Generate(req Request) (Definition, error)
}

// ProceduralGenerator grows the last table wave by a fixed step per extra
// wave. Each candidate missing from the prior wave joins on a roll of at
// least one half.
type ProceduralGenerator struct{}

func (ProceduralGenerator) Generate(req Request) (Definition, error) {
	types := append([]string(nil), req.Prior.Types...)
	for i, c := range req.Candidates {
		if slices.Contains(types, c) || i >= len(req.Rolls) {
			continue
		}
		if req.Rolls[i] >= 0.5 {
			types = append(types, c)
		}
	}
	if len(types) == 0 {
		if len(req.Candidates) == 0 {
			return Definition{}, fmt.Errorf("%w: no candidate types", ErrBadDefinition)
		}
		types = []string{req.Candidates[0]}
	}

	extra := float64(req.Extra)
	return Definition{
		Enemies: req.Last.Enemies + req.Extra*req.ExtraEnemies,
		Types:   types,
		Reward: economy.Reward{
			Energy: req.Last.Reward.Energy + extra*req.ExtraReward.Energy,
			Gold:   req.Last.Reward.Gold + extra*req.ExtraReward.Gold,
		},
	}, nil
}

// ScriptGenerator runs a tengo script to build the wave. The script reads
// extra, last, prior_types, candidates, rolls, extra_enemies and
// extra_reward, and must set enemies, types, reward_energy and reward_gold.
type ScriptGenerator struct {
	compiled *tengo.Compiled
}

func NewScriptGenerator(src []byte) (*ScriptGenerator, error) {
	script := tengo.NewScript(src)
	_ = script.Add("extra", 0)
	_ = script.Add("last", map[string]interface{}{})
	_ = script.Add("prior_types", []interface{}{})
	_ = script.Add("candidates", []interface{}{})
	_ = script.Add("rolls", []interface{}{})
	_ = script.Add("extra_enemies", 0)
	_ = script.Add("extra_reward", map[string]interface{}{})

	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("wave: compile script: %w", err)
	}
	return &ScriptGenerator{compiled: compiled}, nil
}

func (g *ScriptGenerator) Generate(req Request) (Definition, error) {
	if g == nil || g.compiled == nil {
		return Definition{}, fmt.Errorf("%w: script not compiled", ErrBadDefinition)
	}

	inputs := map[string]interface{}{
		"extra": req.Extra,
		"last": map[string]interface{}{
			"enemies":       req.Last.Enemies,
			"reward_energy": req.Last.Reward.Energy,
			"reward_gold":   req.Last.Reward.Gold,
		},
		"prior_types":   stringsToAny(req.Prior.Types),
		"candidates":    stringsToAny(req.Candidates),
		"rolls":         floatsToAny(req.Rolls),
		"extra_enemies": req.ExtraEnemies,
		"extra_reward": map[string]interface{}{
			"energy": req.ExtraReward.Energy,
			"gold":   req.ExtraReward.Gold,
		},
	}
	for name, value := range inputs {
		if err := g.compiled.Set(name, value); err != nil {
			return Definition{}, fmt.Errorf("wave: set %s: %w", name, err)
		}
	}
	if err := g.compiled.Run(); err != nil {
		return Definition{}, fmt.Errorf("wave: run script: %w", err)
	}

	for _, name := range []string{"enemies", "types", "reward_energy", "reward_gold"} {
		if !g.compiled.IsDefined(name) {
			return Definition{}, fmt.Errorf("%w: script did not set %s", ErrBadDefinition, name)
		}
	}

	def := Definition{
		Enemies: g.compiled.Get("enemies").Int(),
		Reward: economy.Reward{
			Energy: g.compiled.Get("reward_energy").Float(),
			Gold:   g.compiled.Get("reward_gold").Float(),
		},
	}
	for _, v := range g.compiled.Get("types").Array() {
		s, ok := v.(string)
		if !ok {
			return Definition{}, fmt.Errorf("%w: non-string type %v", ErrBadDefinition, v)
		}
		def.Types = append(def.Types, s)
	}
	if def.Enemies <= 0 || len(def.Types) == 0 {
		return Definition{}, fmt.Errorf("%w: %d enemies of %d types", ErrBadDefinition, def.Enemies, len(def.Types))
	}
	return def, nil
}

// FallbackGenerator uses Primary and falls back when it fails.
type FallbackGenerator struct {
	Primary  Generator
	Fallback Generator
	Logger   *log.Logger
}

func (g FallbackGenerator) Generate(req Request) (Definition, error) {
	if g.Primary != nil {
		def, err := g.Primary.Generate(req)
		if err == nil {
			return def, nil
		}
		if g.Logger != nil {
			g.Logger.Warn("wave generator failed, using fallback", "extra", req.Extra, "err", err)
		}
	}
	if g.Fallback == nil {
		return Definition{}, fmt.Errorf("%w: no generator", ErrBadDefinition)
	}
	return g.Fallback.Generate(req)
}

func stringsToAny(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func floatsToAny(in []float64) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
