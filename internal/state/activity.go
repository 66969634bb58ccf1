package state

// ActivityKind enumerates the mutually exclusive body-committing states a
// player can be in. Idle is the only kind that commits nothing.
type ActivityKind uint8

const (
	ActivityIdle ActivityKind = iota
	ActivityCharging
	ActivityAttacking
	ActivityRecovering
	ActivityDodging
	ActivityGuarding
	ActivityGrabStartup
	ActivityGrabbing
	ActivityGrabbed
	ActivityGrabWhiff
	ActivityGrabClash
	ActivityRingOut
)

func (k ActivityKind) String() string {
	switch k {
	case ActivityIdle:
		return "idle"
	case ActivityCharging:
		return "charging"
	case ActivityAttacking:
		return "attacking"
	case ActivityRecovering:
		return "recovering"
	case ActivityDodging:
		return "dodging"
	case ActivityGuarding:
		return "guarding"
	case ActivityGrabStartup:
		return "grab_startup"
	case ActivityGrabbing:
		return "grabbing"
	case ActivityGrabbed:
		return "grabbed"
	case ActivityGrabWhiff:
		return "grab_whiff"
	case ActivityGrabClash:
		return "grab_clash"
	case ActivityRingOut:
		return "ring_out"
	default:
		return "unknown"
	}
}

// AttackType distinguishes the two strike families.
type AttackType uint8

const (
	AttackNone AttackType = iota
	AttackLight
	AttackHeavy
)

func (t AttackType) String() string {
	switch t {
	case AttackLight:
		return "light"
	case AttackHeavy:
		return "heavy"
	default:
		return ""
	}
}

// RecoveryKind records why a player is recovering; it only carries meaning
// while the activity is ActivityRecovering.
type RecoveryKind uint8

const (
	RecoveryNone RecoveryKind = iota
	RecoveryAttack
	RecoveryParry
	RecoveryClash
	RecoveryGuarded
	RecoveryGrapple
	RecoveryTech
)

func (k RecoveryKind) String() string {
	switch k {
	case RecoveryAttack:
		return "attack"
	case RecoveryParry:
		return "parry"
	case RecoveryClash:
		return "clash"
	case RecoveryGuarded:
		return "guarded"
	case RecoveryGrapple:
		return "grapple"
	case RecoveryTech:
		return "tech"
	default:
		return ""
	}
}

// AttackMeta describes one attack instance. Ticks are on the room's
// simulation clock.
type AttackMeta struct {
	Type        AttackType
	ChargeStart uint64
	StartTick   uint64
	ActiveTick  uint64
	EndTick     uint64
	Charge      float64
	Facing      float64
	Hit         bool
	Penalized   bool
}

// Active reports whether the attack's hit window covers now.
func (m *AttackMeta) Active(now uint64) bool {
	if m == nil || m.ActiveTick == 0 {
		return false
	}
	return now >= m.ActiveTick && now < m.EndTick
}

// InStartup reports whether the attack has been released but is not active
// yet.
func (m *AttackMeta) InStartup(now uint64) bool {
	if m == nil || m.ActiveTick == 0 {
		return false
	}
	return now < m.ActiveTick
}

// GrappleRole tells the two grapple participants apart.
type GrappleRole uint8

const (
	RoleNone GrappleRole = iota
	RoleGrabber
	RoleGrabbed
)

func (r GrappleRole) String() string {
	switch r {
	case RoleGrabber:
		return "grabber"
	case RoleGrabbed:
		return "grabbed"
	default:
		return ""
	}
}

// GrapplePhase is the current step of the grapple state machine.
type GrapplePhase uint8

const (
	GrapplePhaseNone GrapplePhase = iota
	GrapplePhaseStartup
	GrapplePhaseDecision
	GrapplePhasePush
	GrapplePhasePull
	GrapplePhaseThrow
)

func (p GrapplePhase) String() string {
	switch p {
	case GrapplePhaseStartup:
		return "startup"
	case GrapplePhaseDecision:
		return "decision"
	case GrapplePhasePush:
		return "push"
	case GrapplePhasePull:
		return "pull"
	case GrapplePhaseThrow:
		return "throw"
	default:
		return ""
	}
}

// GrappleMeta is held by both participants of a grapple and shares its ID.
type GrappleMeta struct {
	ID               uint64
	Role             GrappleRole
	OpponentID       string
	Phase            GrapplePhase
	StartTick        uint64
	BranchTick       uint64
	PushSpeed        float64
	Counter          Buttons
	CounterAttempted bool
}

// Activity is the tagged union describing what a player's body is doing.
// Attack is set for Charging, Attacking and attack recoveries; Grapple for the
// grab kinds.
type Activity struct {
	Kind     ActivityKind
	Attack   *AttackMeta
	Grapple  *GrappleMeta
	Recovery RecoveryKind
	Since    uint64
	Instance uint64
}

// Is reports whether the activity is of kind k.
func (a Activity) Is(k ActivityKind) bool {
	return a.Kind == k
}

// AttackType returns the attack type carried by the activity, if any.
func (a Activity) AttackType() AttackType {
	if a.Attack == nil {
		return AttackNone
	}
	return a.Attack.Type
}
