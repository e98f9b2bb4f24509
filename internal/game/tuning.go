package game

import "time"

// Tuning holds every hand-tuned constant of the bout simulation.
// Distances are arena units, speeds are units per reference frame,
// simulated durations are seconds and wall-clock windows are time.Duration.
type Tuning struct {
	// Arena
	Width        float64 `mapstructure:"width"`
	Height       float64 `mapstructure:"height"`
	RingRadius   float64 `mapstructure:"ring_radius"`
	StartOffset  float64 `mapstructure:"start_offset"`  // distance of each wrestler from center at the shikiri lines
	ReferenceFPS float64 `mapstructure:"reference_fps"` // friction and velocity are expressed per frame at this rate

	// Motion
	Friction          float64 `mapstructure:"friction"`
	MaxSpeed          float64 `mapstructure:"max_speed"`
	MinCollisionDist  float64 `mapstructure:"min_collision_dist"`
	ClinchMaxDist     float64 `mapstructure:"clinch_max_dist"`
	ClinchForce       float64 `mapstructure:"clinch_force"`
	CollisionPushback float64 `mapstructure:"collision_pushback"`
	JitterIntensity   float64 `mapstructure:"jitter_intensity"`
	ChargeImpulse     float64 `mapstructure:"charge_impulse"`
	RingOutTicks      int     `mapstructure:"ring_out_ticks"` // 0 goes straight to GAME_OVER

	// Stamina
	StaminaMax        float64 `mapstructure:"stamina_max"`
	StaminaCostPush   float64 `mapstructure:"stamina_cost_push"`
	StaminaRegenRate  float64 `mapstructure:"stamina_regen_rate"`  // per second
	StaminaRegenDelay float64 `mapstructure:"stamina_regen_delay"` // seconds since last push

	// Push resolution
	InputCooldown         float64 `mapstructure:"input_cooldown"`
	PushForceBase         float64 `mapstructure:"push_force_base"`
	HitRange              float64 `mapstructure:"hit_range"`
	LungeForce            float64 `mapstructure:"lunge_force"`
	LateralFactor         float64 `mapstructure:"lateral_factor"`
	SkillProcChance       float64 `mapstructure:"skill_proc_chance"`
	CounterWindow         float64 `mapstructure:"counter_window"`
	CounterBonus          float64 `mapstructure:"counter_bonus"`
	ClashCostMult         float64 `mapstructure:"clash_cost_mult"`
	StreakLength          int     `mapstructure:"streak_length"`
	PredictabilityPenalty float64 `mapstructure:"predictability_penalty"`
	FatigueMult           float64 `mapstructure:"fatigue_mult"`
	ReboundChance         float64 `mapstructure:"rebound_chance"`
	ReboundFactor         float64 `mapstructure:"rebound_factor"`
	EdgeResistance        float64 `mapstructure:"edge_resistance"`
	VarianceMin           float64 `mapstructure:"variance_min"`
	VarianceMax           float64 `mapstructure:"variance_max"`
	CounterVarianceMin    float64 `mapstructure:"counter_variance_min"`
	CounterVarianceMax    float64 `mapstructure:"counter_variance_max"`
	KiaiForceMult         float64 `mapstructure:"kiai_force_mult"`
	KiaiCostMult          float64 `mapstructure:"kiai_cost_mult"`

	// Tachiai and matta
	SyncWindow     time.Duration `mapstructure:"sync_window"`
	ReadyTimeout   time.Duration `mapstructure:"ready_timeout"`
	MattaDelay     float64       `mapstructure:"matta_delay"`
	MaxFalseStarts int           `mapstructure:"max_false_starts"`

	// Flavor skill events on contact
	FlavorChance    float64 `mapstructure:"flavor_chance"`
	FlavorCooldown  float64 `mapstructure:"flavor_cooldown"`
	FlavorDominance float64 `mapstructure:"flavor_dominance"`
}

// DefaultTuning returns the playtested defaults.
func DefaultTuning() Tuning {
	return Tuning{
		Width:        64,
		Height:       32,
		RingRadius:   14,
		StartOffset:  6,
		ReferenceFPS: 60,

		Friction:          0.94,
		MaxSpeed:          0.6,
		MinCollisionDist:  4.5,
		ClinchMaxDist:     8,
		ClinchForce:       0.005,
		CollisionPushback: 0.5,
		JitterIntensity:   0.15,
		ChargeImpulse:     0.25,
		RingOutTicks:      30,

		StaminaMax:        100,
		StaminaCostPush:   12,
		StaminaRegenRate:  20,
		StaminaRegenDelay: 0.8,

		InputCooldown:         0.1,
		PushForceBase:         0.08,
		HitRange:              7,
		LungeForce:            0.05,
		LateralFactor:         0.15,
		SkillProcChance:       0.15,
		CounterWindow:         0.5,
		CounterBonus:          1.5,
		ClashCostMult:         2,
		StreakLength:          3,
		PredictabilityPenalty: 0.6,
		FatigueMult:           0.5,
		ReboundChance:         0.1,
		ReboundFactor:         0.5,
		EdgeResistance:        0.6,
		VarianceMin:           0.8,
		VarianceMax:           1.2,
		CounterVarianceMin:    0.95,
		CounterVarianceMax:    1.05,
		KiaiForceMult:         1.25,
		KiaiCostMult:          1.5,

		SyncWindow:     200 * time.Millisecond,
		ReadyTimeout:   time.Second,
		MattaDelay:     1.5,
		MaxFalseStarts: 2,

		FlavorChance:    0.2,
		FlavorCooldown:  1.2,
		FlavorDominance: 0.2,
	}
}

// Center returns the ring center.
func (t Tuning) Center() (float64, float64) {
	return t.Width / 2, t.Height / 2
}
