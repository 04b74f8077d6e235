package prefabs

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var ErrInvalidSpec = errors.New("prefabs: invalid spec")

const (
	WorldFile   = "world.yaml"
	BlocksFile  = "blocks.yaml"
	EnemiesFile = "enemies.yaml"
	WavesFile   = "waves.yaml"
	EconomyFile = "economy.yaml"
)

// SpecFiles lists every tuning file that makes up a GameSpec.
var SpecFiles = []string{WorldFile, BlocksFile, EnemiesFile, WavesFile, EconomyFile}

func LoadSpec[T any](filename string) (T, error) {
	return LoadSpecFrom[T]("", filename)
}

func LoadSpecFrom[T any](dir, filename string) (T, error) {
	var zero T
	data, err := LoadFrom(dir, filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// GameSpec is the full tuning surface of a match.
type GameSpec struct {
	World   WorldSpec
	Blocks  BlocksSpec
	Enemies EnemiesSpec
	Waves   WavesSpec
	Economy EconomySpec
}

// LoadGameSpec loads and validates every tuning file. An empty dir uses the
// default lookup (./prefabs on disk, then the embedded copies).
func LoadGameSpec(dir string) (*GameSpec, error) {
	var (
		spec GameSpec
		err  error
	)
	if spec.World, err = LoadSpecFrom[WorldSpec](dir, WorldFile); err != nil {
		return nil, err
	}
	if spec.Blocks, err = LoadSpecFrom[BlocksSpec](dir, BlocksFile); err != nil {
		return nil, err
	}
	if spec.Enemies, err = LoadSpecFrom[EnemiesSpec](dir, EnemiesFile); err != nil {
		return nil, err
	}
	if spec.Waves, err = LoadSpecFrom[WavesSpec](dir, WavesFile); err != nil {
		return nil, err
	}
	if spec.Economy, err = LoadSpecFrom[EconomySpec](dir, EconomyFile); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// MustDefault returns the embedded tuning. It panics if the embedded files
// are broken, which can only happen at build time.
func MustDefault() *GameSpec {
	spec, err := LoadGameSpec("")
	if err != nil {
		panic(err)
	}
	return spec
}

type WorldSpec struct {
	Name              string       `yaml:"name"`
	Viewport          ViewportSpec `yaml:"viewport"`
	Ground            GroundSpec   `yaml:"ground"`
	Physics           PhysicsSpec  `yaml:"physics"`
	Loop              LoopSpec     `yaml:"loop"`
	Home              HomeSpec     `yaml:"home"`
	Spawn             SpawnSpec    `yaml:"spawn"`
	FallLimit         float64      `yaml:"fall_limit"`
	ImpactDamageScale float64      `yaml:"impact_damage_scale"`
}

type ViewportSpec struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type GroundSpec struct {
	Height     float64 `yaml:"height"`
	Offset     float64 `yaml:"offset"`
	Friction   float64 `yaml:"friction"`
	Elasticity float64 `yaml:"elasticity"`
}

type PhysicsSpec struct {
	Gravity            float64 `yaml:"gravity"`
	Iterations         int     `yaml:"iterations"`
	CapDelta           float64 `yaml:"cap_delta"`
	SleepTimeThreshold float64 `yaml:"sleep_time_threshold"`
	IdleSpeedThreshold float64 `yaml:"idle_speed_threshold"`
}

type LoopSpec struct {
	FixedStep   float64 `yaml:"fixed_step"`
	MaxDelta    float64 `yaml:"max_delta"`
	MaxSubSteps int     `yaml:"max_sub_steps"`
}

type HomeSpec struct {
	X           float64 `yaml:"x"`
	AboveGround float64 `yaml:"above_ground"`
}

type SpawnSpec struct {
	Margin      float64 `yaml:"margin"`
	JitterX     float64 `yaml:"jitter_x"`
	AboveGround float64 `yaml:"above_ground"`
	JitterY     float64 `yaml:"jitter_y"`
}

// GroundCenterY is the vertical centre of the ground slab.
func (w WorldSpec) GroundCenterY() float64 {
	return w.Viewport.Height - w.Ground.Offset
}

// GroundTop is the y coordinate of the walkable surface (screen coordinates,
// y grows downward).
func (w WorldSpec) GroundTop() float64 {
	return w.GroundCenterY() - w.Ground.Height/2
}

// HomePosition is the point enemies march toward.
func (w WorldSpec) HomePosition() (float64, float64) {
	return w.Home.X, w.GroundTop() - w.Home.AboveGround
}

type BlocksSpec struct {
	Name        string                  `yaml:"name"`
	Rope        RopeSpec                `yaml:"rope"`
	Placement   PlacementSpec           `yaml:"placement"`
	Projectile  ProjectileSpec          `yaml:"projectile"`
	AttackRange float64                 `yaml:"attack_range"`
	Catalog     []BlockSpec             `yaml:"catalog"`
	Materials   map[string]MaterialSpec `yaml:"materials"`
}

type RopeSpec struct {
	Y          float64 `yaml:"y"`
	Length     float64 `yaml:"length"`
	SwingSpeed float64 `yaml:"swing_speed"`
	MaxAngle   float64 `yaml:"max_angle"`
}

type PlacementSpec struct {
	PlaceCooldown  float64 `yaml:"place_cooldown"`
	RespawnDelay   float64 `yaml:"respawn_delay"`
	CreateGuard    float64 `yaml:"create_guard"`
	NoticeDuration float64 `yaml:"notice_duration"`
	NoticeFade     float64 `yaml:"notice_fade"`
	DropSpeed      float64 `yaml:"drop_speed"`
	FirstBlock     string  `yaml:"first_block"`
}

type ProjectileSpec struct {
	Speed    float64 `yaml:"speed"`
	Lifetime float64 `yaml:"lifetime"`
	Radius   float64 `yaml:"radius"`
}

type BlockSpec struct {
	Type                 string  `yaml:"type"`
	Material             string  `yaml:"material"`
	Durability           float64 `yaml:"durability"`
	DurabilityMultiplier float64 `yaml:"durability_multiplier"`
	Width                float64 `yaml:"width"`
	Height               float64 `yaml:"height"`
	AttackSpeed          float64 `yaml:"attack_speed"`
	Weapon               bool    `yaml:"weapon"`
}

type MaterialSpec struct {
	Density     float64 `yaml:"density"`
	Friction    float64 `yaml:"friction"`
	Elasticity  float64 `yaml:"elasticity"`
	AttackPower float64 `yaml:"attack_power"`
}

// Block returns the catalog entry for a block type.
func (b BlocksSpec) Block(blockType string) (BlockSpec, bool) {
	for _, entry := range b.Catalog {
		if entry.Type == blockType {
			return entry, true
		}
	}
	return BlockSpec{}, false
}

type EnemiesSpec struct {
	Name     string                   `yaml:"name"`
	Body     EnemyBodySpec            `yaml:"body"`
	Steering SteeringSpec             `yaml:"steering"`
	Types    map[string]EnemyTypeSpec `yaml:"types"`
}

type EnemyBodySpec struct {
	Density    float64 `yaml:"density"`
	Friction   float64 `yaml:"friction"`
	Elasticity float64 `yaml:"elasticity"`
}

type SteeringSpec struct {
	MaxDT                 float64 `yaml:"max_dt"`
	BaseGain              float64 `yaml:"base_gain"`
	ReferencePush         float64 `yaml:"reference_push"`
	VerticalGainBelow     float64 `yaml:"vertical_gain_below"`
	VerticalGainAbove     float64 `yaml:"vertical_gain_above"`
	ArriveRadius          float64 `yaml:"arrive_radius"`
	StuckWindow           float64 `yaml:"stuck_window"`
	StuckThreshold        float64 `yaml:"stuck_threshold"`
	StuckMinDistance      float64 `yaml:"stuck_min_distance"`
	StuckMultiplier       float64 `yaml:"stuck_multiplier"`
	StuckJitter           float64 `yaml:"stuck_jitter"`
	StuckLift             float64 `yaml:"stuck_lift"`
	ProximityRadius       float64 `yaml:"proximity_radius"`
	ApproachRadius        float64 `yaml:"approach_radius"`
	ApproachGain          float64 `yaml:"approach_gain"`
	ApproachMaxSpeed      float64 `yaml:"approach_max_speed"`
	VelocityScale         float64 `yaml:"velocity_scale"`
	VerticalVelocityRatio float64 `yaml:"vertical_velocity_ratio"`
	ContactDamageScale    float64 `yaml:"contact_damage_scale"`
	ReachDistance         float64 `yaml:"reach_distance"`
	SpawnPush             float64 `yaml:"spawn_push"`
	SpawnLift             float64 `yaml:"spawn_lift"`
}

type EnemyTypeSpec struct {
	Radius       float64 `yaml:"radius"`
	Speed        float64 `yaml:"speed"`
	PushForce    float64 `yaml:"push_force"`
	Health       float64 `yaml:"health"`
	Damage       float64 `yaml:"damage"`
	EnergyReward float64 `yaml:"energy_reward"`
	Flying       bool    `yaml:"flying"`
}

type WavesSpec struct {
	Name            string     `yaml:"name"`
	FirstCountdown  float64    `yaml:"first_countdown"`
	Interval        float64    `yaml:"interval"`
	SpawnInterval   float64    `yaml:"spawn_interval"`
	Script          string     `yaml:"script"`
	ProceduralTypes []string   `yaml:"procedural_types"`
	ExtraEnemies    int        `yaml:"extra_enemies"`
	ExtraReward     RewardSpec `yaml:"extra_reward"`
	Table           []WaveSpec `yaml:"table"`
}

type WaveSpec struct {
	Enemies int        `yaml:"enemies"`
	Types   []string   `yaml:"types"`
	Reward  RewardSpec `yaml:"reward"`
}

type RewardSpec struct {
	Energy float64 `yaml:"energy"`
	Gold   float64 `yaml:"gold"`
}

type EconomySpec struct {
	Name  string             `yaml:"name"`
	Start CurrencySpec       `yaml:"start"`
	Rates CurrencySpec       `yaml:"rates"`
	Costs map[string]float64 `yaml:"costs"`

	// Upgrade trades gold for a faster energy income.
	Upgrade UpgradeSpec `yaml:"upgrade"`
}

type UpgradeSpec struct {
	EnergyRate float64 `yaml:"energy_rate"`
	GoldCost   float64 `yaml:"gold_cost"`
}

type CurrencySpec struct {
	Energy float64 `yaml:"energy"`
	Gold   float64 `yaml:"gold"`
}

// Validate checks cross-file references and the values the simulation
// divides by.
func (s *GameSpec) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil spec", ErrInvalidSpec)
	}
	w := s.World
	if w.Viewport.Width <= 0 || w.Viewport.Height <= 0 {
		return fmt.Errorf("%w: viewport must be positive, got %vx%v", ErrInvalidSpec, w.Viewport.Width, w.Viewport.Height)
	}
	if w.Loop.FixedStep <= 0 || w.Loop.MaxSubSteps <= 0 {
		return fmt.Errorf("%w: loop needs a positive fixed_step and max_sub_steps", ErrInvalidSpec)
	}
	if w.Physics.CapDelta <= 0 {
		return fmt.Errorf("%w: physics cap_delta must be positive", ErrInvalidSpec)
	}

	if len(s.Blocks.Catalog) == 0 {
		return fmt.Errorf("%w: block catalog is empty", ErrInvalidSpec)
	}
	for _, b := range s.Blocks.Catalog {
		if _, ok := s.Blocks.Materials[b.Material]; !ok {
			return fmt.Errorf("%w: block %q uses unknown material %q", ErrInvalidSpec, b.Type, b.Material)
		}
		if _, ok := s.Economy.Costs[b.Type]; !ok {
			return fmt.Errorf("%w: block %q has no cost", ErrInvalidSpec, b.Type)
		}
		if b.Width <= 0 || b.Height <= 0 {
			return fmt.Errorf("%w: block %q needs a positive size", ErrInvalidSpec, b.Type)
		}
		if b.Weapon && b.AttackSpeed <= 0 {
			return fmt.Errorf("%w: armed block %q needs a positive attack_speed", ErrInvalidSpec, b.Type)
		}
	}
	if first := s.Blocks.Placement.FirstBlock; first != "" {
		if _, ok := s.Blocks.Block(first); !ok {
			return fmt.Errorf("%w: first_block %q is not in the catalog", ErrInvalidSpec, first)
		}
	}

	if up := s.Economy.Upgrade; up.EnergyRate < 0 || up.GoldCost < 0 {
		return fmt.Errorf("%w: upgrade needs a non-negative energy_rate and gold_cost", ErrInvalidSpec)
	}

	if len(s.Waves.Table) == 0 {
		return fmt.Errorf("%w: wave table is empty", ErrInvalidSpec)
	}
	for i, wave := range s.Waves.Table {
		if wave.Enemies <= 0 || len(wave.Types) == 0 {
			return fmt.Errorf("%w: wave %d needs enemies and types", ErrInvalidSpec, i+1)
		}
		for _, t := range wave.Types {
			if _, ok := s.Enemies.Types[t]; !ok {
				return fmt.Errorf("%w: wave %d uses unknown enemy type %q", ErrInvalidSpec, i+1, t)
			}
		}
	}
	if len(s.Waves.ProceduralTypes) == 0 {
		return fmt.Errorf("%w: procedural_types is empty", ErrInvalidSpec)
	}
	for _, t := range s.Waves.ProceduralTypes {
		if _, ok := s.Enemies.Types[t]; !ok {
			return fmt.Errorf("%w: procedural type %q is unknown", ErrInvalidSpec, t)
		}
	}
	return nil
}
