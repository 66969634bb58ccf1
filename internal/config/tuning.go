package config

import (
	"errors"
	"fmt"
)

// Tuning is the flat table of gameplay magnitudes. Durations are expressed in
// simulation ticks, distances in arena units and velocities in units per tick.
type Tuning struct {
	// Arena. The ring edge decides ring-outs; the arena bounds clamp positions.
	ArenaLeft      float64 `json:"arenaLeft" mapstructure:"arenaLeft"`
	ArenaRight     float64 `json:"arenaRight" mapstructure:"arenaRight"`
	RingLeft       float64 `json:"ringLeft" mapstructure:"ringLeft"`
	RingRight      float64 `json:"ringRight" mapstructure:"ringRight"`
	StartLeftX     float64 `json:"startLeftX" mapstructure:"startLeftX"`
	StartRightX    float64 `json:"startRightX" mapstructure:"startRightX"`
	BoundaryMargin float64 `json:"boundaryMargin" mapstructure:"boundaryMargin"`
	BodyWidth      float64 `json:"bodyWidth" mapstructure:"bodyWidth"`
	BodyHeight     float64 `json:"bodyHeight" mapstructure:"bodyHeight"`
	AirborneLift   float64 `json:"airborneLift" mapstructure:"airborneLift"`

	// Motion.
	MoveSpeed        float64 `json:"moveSpeed" mapstructure:"moveSpeed"`
	Friction         float64 `json:"friction" mapstructure:"friction"`
	MovementFriction float64 `json:"movementFriction" mapstructure:"movementFriction"`
	VelocityEpsilon  float64 `json:"velocityEpsilon" mapstructure:"velocityEpsilon"`
	LaunchSpeed      float64 `json:"launchSpeed" mapstructure:"launchSpeed"`

	// Stamina.
	StaminaMax          float64 `json:"staminaMax" mapstructure:"staminaMax"`
	StaminaRegenPerTick float64 `json:"staminaRegenPerTick" mapstructure:"staminaRegenPerTick"`
	DodgeStaminaCost    float64 `json:"dodgeStaminaCost" mapstructure:"dodgeStaminaCost"`
	GuardStaminaCost    float64 `json:"guardStaminaCost" mapstructure:"guardStaminaCost"`
	GrabStaminaCost     float64 `json:"grabStaminaCost" mapstructure:"grabStaminaCost"`

	// Light attack.
	LightStartupTicks  uint64  `json:"lightStartupTicks" mapstructure:"lightStartupTicks"`
	LightActiveTicks   uint64  `json:"lightActiveTicks" mapstructure:"lightActiveTicks"`
	LightRecoveryTicks uint64  `json:"lightRecoveryTicks" mapstructure:"lightRecoveryTicks"`
	LightRange         float64 `json:"lightRange" mapstructure:"lightRange"`
	LightKnockback     float64 `json:"lightKnockback" mapstructure:"lightKnockback"`
	LightHitStunTicks  uint64  `json:"lightHitStunTicks" mapstructure:"lightHitStunTicks"`
	LightFreezeTicks   uint64  `json:"lightFreezeTicks" mapstructure:"lightFreezeTicks"`

	// Heavy attack.
	HeavyFullChargeTicks uint64  `json:"heavyFullChargeTicks" mapstructure:"heavyFullChargeTicks"`
	HeavyStartupTicks    uint64  `json:"heavyStartupTicks" mapstructure:"heavyStartupTicks"`
	HeavyActiveTicks     uint64  `json:"heavyActiveTicks" mapstructure:"heavyActiveTicks"`
	HeavyRecoveryTicks   uint64  `json:"heavyRecoveryTicks" mapstructure:"heavyRecoveryTicks"`
	HeavyReach           float64 `json:"heavyReach" mapstructure:"heavyReach"`
	HeavyWidth           float64 `json:"heavyWidth" mapstructure:"heavyWidth"`
	HeavyHeight          float64 `json:"heavyHeight" mapstructure:"heavyHeight"`
	HeavyKnockback       float64 `json:"heavyKnockback" mapstructure:"heavyKnockback"`
	HeavyHitStunTicks    uint64  `json:"heavyHitStunTicks" mapstructure:"heavyHitStunTicks"`
	HeavyFreezeTicks     uint64  `json:"heavyFreezeTicks" mapstructure:"heavyFreezeTicks"`
	ChargeScaling        float64 `json:"chargeScaling" mapstructure:"chargeScaling"`
	HeavyPriorityCharge  float64 `json:"heavyPriorityCharge" mapstructure:"heavyPriorityCharge"`
	HeavyLossPenalty     float64 `json:"heavyLossPenalty" mapstructure:"heavyLossPenalty"`

	// Modifiers.
	CounterHitMultiplier     float64 `json:"counterHitMultiplier" mapstructure:"counterHitMultiplier"`
	PunishMultiplier         float64 `json:"punishMultiplier" mapstructure:"punishMultiplier"`
	CrouchReduction          float64 `json:"crouchReduction" mapstructure:"crouchReduction"`
	PowerMultiplier          float64 `json:"powerMultiplier" mapstructure:"powerMultiplier"`
	CounterIntentWindowTicks uint64  `json:"counterIntentWindowTicks" mapstructure:"counterIntentWindowTicks"`

	// Simultaneous strikes.
	ParryWindowTicks     uint64  `json:"parryWindowTicks" mapstructure:"parryWindowTicks"`
	ParryKnockback       float64 `json:"parryKnockback" mapstructure:"parryKnockback"`
	ParryFreezeTicks     uint64  `json:"parryFreezeTicks" mapstructure:"parryFreezeTicks"`
	HitImmunityTicks     uint64  `json:"hitImmunityTicks" mapstructure:"hitImmunityTicks"`
	ClashKnockback       float64 `json:"clashKnockback" mapstructure:"clashKnockback"`
	ClashChargeScale     float64 `json:"clashChargeScale" mapstructure:"clashChargeScale"`
	ClashMinKnockback    float64 `json:"clashMinKnockback" mapstructure:"clashMinKnockback"`
	ClashRecoveryTicks   uint64  `json:"clashRecoveryTicks" mapstructure:"clashRecoveryTicks"`
	ClashFreezeBaseTicks uint64  `json:"clashFreezeBaseTicks" mapstructure:"clashFreezeBaseTicks"`
	ClashFreezePerCharge float64 `json:"clashFreezePerCharge" mapstructure:"clashFreezePerCharge"`

	// Ring-out prediction and finishing hits.
	RingOutSimMaxTicks   int     `json:"ringOutSimMaxTicks" mapstructure:"ringOutSimMaxTicks"`
	FinishFreezeTicks    uint64  `json:"finishFreezeTicks" mapstructure:"finishFreezeTicks"`
	FinishKnockbackBoost float64 `json:"finishKnockbackBoost" mapstructure:"finishKnockbackBoost"`
	RoundResetTicks      uint64  `json:"roundResetTicks" mapstructure:"roundResetTicks"`

	// Guard stance.
	PerfectParryTicks     uint64  `json:"perfectParryTicks" mapstructure:"perfectParryTicks"`
	GuardStunTicks        uint64  `json:"guardStunTicks" mapstructure:"guardStunTicks"`
	PerfectGuardStunTicks uint64  `json:"perfectGuardStunTicks" mapstructure:"perfectGuardStunTicks"`
	GuardKnockback        float64 `json:"guardKnockback" mapstructure:"guardKnockback"`
	PerfectStaminaRefund  float64 `json:"perfectStaminaRefund" mapstructure:"perfectStaminaRefund"`

	// Dodge.
	DodgeTicks         uint64  `json:"dodgeTicks" mapstructure:"dodgeTicks"`
	DodgeSpeed         float64 `json:"dodgeSpeed" mapstructure:"dodgeSpeed"`
	DodgeCooldownTicks uint64  `json:"dodgeCooldownTicks" mapstructure:"dodgeCooldownTicks"`

	// Grapple.
	GrabStartupTicks        uint64  `json:"grabStartupTicks" mapstructure:"grabStartupTicks"`
	GrabLungeSpeed          float64 `json:"grabLungeSpeed" mapstructure:"grabLungeSpeed"`
	GrabRange               float64 `json:"grabRange" mapstructure:"grabRange"`
	GrabOffset              float64 `json:"grabOffset" mapstructure:"grabOffset"`
	GrabWhiffRecoveryTicks  uint64  `json:"grabWhiffRecoveryTicks" mapstructure:"grabWhiffRecoveryTicks"`
	GrabTechToleranceTicks  uint64  `json:"grabTechToleranceTicks" mapstructure:"grabTechToleranceTicks"`
	GrabClashThresholdTicks uint64  `json:"grabClashThresholdTicks" mapstructure:"grabClashThresholdTicks"`
	GrabClashWindowTicks    uint64  `json:"grabClashWindowTicks" mapstructure:"grabClashWindowTicks"`
	TechKnockback           float64 `json:"techKnockback" mapstructure:"techKnockback"`
	TechFreezeTicks         uint64  `json:"techFreezeTicks" mapstructure:"techFreezeTicks"`
	PushSpeed               float64 `json:"pushSpeed" mapstructure:"pushSpeed"`
	PushDecay               float64 `json:"pushDecay" mapstructure:"pushDecay"`
	PushSpeedFloor          float64 `json:"pushSpeedFloor" mapstructure:"pushSpeedFloor"`
	PushMaxTicks            uint64  `json:"pushMaxTicks" mapstructure:"pushMaxTicks"`
	PushReleaseKnockback    float64 `json:"pushReleaseKnockback" mapstructure:"pushReleaseKnockback"`
	PinStaminaDrain         float64 `json:"pinStaminaDrain" mapstructure:"pinStaminaDrain"`
	PullGraceTicks          uint64  `json:"pullGraceTicks" mapstructure:"pullGraceTicks"`
	CounterWindowTicks      uint64  `json:"counterWindowTicks" mapstructure:"counterWindowTicks"`
	BreakKnockback          float64 `json:"breakKnockback" mapstructure:"breakKnockback"`
	BreakFreezeTicks        uint64  `json:"breakFreezeTicks" mapstructure:"breakFreezeTicks"`
	ThrowKnockback          float64 `json:"throwKnockback" mapstructure:"throwKnockback"`
	PullKnockback           float64 `json:"pullKnockback" mapstructure:"pullKnockback"`
	GrappleHitStunTicks     uint64  `json:"grappleHitStunTicks" mapstructure:"grappleHitStunTicks"`
	GrappleRecoveryTicks    uint64  `json:"grappleRecoveryTicks" mapstructure:"grappleRecoveryTicks"`

	// Projectiles.
	ProjectileSpeed         float64 `json:"projectileSpeed" mapstructure:"projectileSpeed"`
	ProjectileLifespanTicks uint64  `json:"projectileLifespanTicks" mapstructure:"projectileLifespanTicks"`
	ProjectileRadius        float64 `json:"projectileRadius" mapstructure:"projectileRadius"`
	ProjectileKnockback     float64 `json:"projectileKnockback" mapstructure:"projectileKnockback"`
	ProjectileStunTicks     uint64  `json:"projectileStunTicks" mapstructure:"projectileStunTicks"`
	ProjectileCooldownTicks uint64  `json:"projectileCooldownTicks" mapstructure:"projectileCooldownTicks"`
	SummonSpeed             float64 `json:"summonSpeed" mapstructure:"summonSpeed"`
	SummonRadius            float64 `json:"summonRadius" mapstructure:"summonRadius"`
	SummonLifespanTicks     uint64  `json:"summonLifespanTicks" mapstructure:"summonLifespanTicks"`
}

// DefaultTuning returns the shipped gameplay table, calibrated for 64 ticks
// per second.
func DefaultTuning() Tuning {
	return Tuning{
		ArenaLeft:      0,
		ArenaRight:     1280,
		RingLeft:       160,
		RingRight:      1120,
		StartLeftX:     520,
		StartRightX:    760,
		BoundaryMargin: 12,
		BodyWidth:      70,
		BodyHeight:     120,
		AirborneLift:   60,

		MoveSpeed:        4,
		Friction:         0.9,
		MovementFriction: 0.6,
		VelocityEpsilon:  0.05,
		LaunchSpeed:      14,

		StaminaMax:          100,
		StaminaRegenPerTick: 0.25,
		DodgeStaminaCost:    20,
		GuardStaminaCost:    5,
		GrabStaminaCost:     10,

		LightStartupTicks:  4,
		LightActiveTicks:   4,
		LightRecoveryTicks: 10,
		LightRange:         95,
		LightKnockback:     6,
		LightHitStunTicks:  12,
		LightFreezeTicks:   3,

		HeavyFullChargeTicks: 60,
		HeavyStartupTicks:    6,
		HeavyActiveTicks:     5,
		HeavyRecoveryTicks:   20,
		HeavyReach:           60,
		HeavyWidth:           110,
		HeavyHeight:          80,
		HeavyKnockback:       12,
		HeavyHitStunTicks:    20,
		HeavyFreezeTicks:     6,
		ChargeScaling:        1,
		HeavyPriorityCharge:  60,
		HeavyLossPenalty:     1.5,

		CounterHitMultiplier:     1.25,
		PunishMultiplier:         1.3,
		CrouchReduction:          0.7,
		PowerMultiplier:          1.2,
		CounterIntentWindowTicks: 6,

		ParryWindowTicks:     3,
		ParryKnockback:       8,
		ParryFreezeTicks:     6,
		HitImmunityTicks:     10,
		ClashKnockback:       10,
		ClashChargeScale:     0.5,
		ClashMinKnockback:    3,
		ClashRecoveryTicks:   18,
		ClashFreezeBaseTicks: 4,
		ClashFreezePerCharge: 0.08,

		RingOutSimMaxTicks:   240,
		FinishFreezeTicks:    20,
		FinishKnockbackBoost: 1.5,
		RoundResetTicks:      128,

		PerfectParryTicks:     5,
		GuardStunTicks:        20,
		PerfectGuardStunTicks: 40,
		GuardKnockback:        7,
		PerfectStaminaRefund:  15,

		DodgeTicks:         10,
		DodgeSpeed:         10,
		DodgeCooldownTicks: 30,

		GrabStartupTicks:        6,
		GrabLungeSpeed:          6,
		GrabRange:               85,
		GrabOffset:              70,
		GrabWhiffRecoveryTicks:  40,
		GrabTechToleranceTicks:  3,
		GrabClashThresholdTicks: 1,
		GrabClashWindowTicks:    40,
		TechKnockback:           9,
		TechFreezeTicks:         8,
		PushSpeed:               12,
		PushDecay:               0.92,
		PushSpeedFloor:          1,
		PushMaxTicks:            48,
		PushReleaseKnockback:    6,
		PinStaminaDrain:         2.5,
		PullGraceTicks:          8,
		CounterWindowTicks:      20,
		BreakKnockback:          10,
		BreakFreezeTicks:        8,
		ThrowKnockback:          16,
		PullKnockback:           10,
		GrappleHitStunTicks:     18,
		GrappleRecoveryTicks:    12,

		ProjectileSpeed:         9,
		ProjectileLifespanTicks: 180,
		ProjectileRadius:        30,
		ProjectileKnockback:     5,
		ProjectileStunTicks:     12,
		ProjectileCooldownTicks: 90,
		SummonSpeed:             5,
		SummonRadius:            45,
		SummonLifespanTicks:     120,
	}
}

// Validate rejects tables the simulation cannot run with.
func (t Tuning) Validate() error {
	var errs []error
	if t.ArenaRight <= t.ArenaLeft {
		errs = append(errs, fmt.Errorf("arena bounds inverted: left=%v right=%v", t.ArenaLeft, t.ArenaRight))
	}
	if t.RingLeft < t.ArenaLeft || t.RingRight > t.ArenaRight || t.RingRight <= t.RingLeft {
		errs = append(errs, fmt.Errorf("ring edge [%v,%v] must lie inside the arena", t.RingLeft, t.RingRight))
	}
	if t.StartLeftX <= t.RingLeft || t.StartRightX >= t.RingRight || t.StartLeftX >= t.StartRightX {
		errs = append(errs, fmt.Errorf("start marks %v/%v must lie inside the ring", t.StartLeftX, t.StartRightX))
	}
	if t.BoundaryMargin < 0 || 2*t.BoundaryMargin >= t.RingRight-t.RingLeft {
		errs = append(errs, fmt.Errorf("boundaryMargin %v does not fit the ring", t.BoundaryMargin))
	}
	if t.Friction <= 0 || t.Friction >= 1 {
		errs = append(errs, fmt.Errorf("friction must be in (0,1), got %v", t.Friction))
	}
	if t.PushDecay <= 0 || t.PushDecay >= 1 {
		errs = append(errs, fmt.Errorf("pushDecay must be in (0,1), got %v", t.PushDecay))
	}
	positive := map[string]uint64{
		"lightStartupTicks":    t.LightStartupTicks,
		"lightActiveTicks":     t.LightActiveTicks,
		"heavyFullChargeTicks": t.HeavyFullChargeTicks,
		"heavyStartupTicks":    t.HeavyStartupTicks,
		"heavyActiveTicks":     t.HeavyActiveTicks,
		"grabStartupTicks":     t.GrabStartupTicks,
		"grabClashWindowTicks": t.GrabClashWindowTicks,
		"counterWindowTicks":   t.CounterWindowTicks,
		"pushMaxTicks":         t.PushMaxTicks,
		"dodgeTicks":           t.DodgeTicks,
	}
	for name, value := range positive {
		if value == 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if t.PerfectParryTicks == 0 {
		errs = append(errs, errors.New("perfectParryTicks must be positive"))
	}
	if t.GrabClashThresholdTicks > t.GrabTechToleranceTicks {
		errs = append(errs, fmt.Errorf("grabClashThresholdTicks (%d) exceeds grabTechToleranceTicks (%d)", t.GrabClashThresholdTicks, t.GrabTechToleranceTicks))
	}
	if t.RingOutSimMaxTicks <= 0 {
		errs = append(errs, errors.New("ringOutSimMaxTicks must be positive"))
	}
	return errors.Join(errs...)
}
