package guard

// Intent is one world mutation the host is about to apply.
type Intent interface {
	Kind() string
}

type BlockAt struct {
	Loc   Location
	Block BlockType
}

type PlaceIntent struct {
	Actor Actor
	At    BlockAt
}

type BreakIntent struct {
	Actor Actor
	At    BlockAt
}

// ExplodeIntent carries the candidate blocks an explosion would destroy.
type ExplodeIntent struct {
	Blocks []BlockAt
}

// PistonIntent carries every block a piston would push or pull.
type PistonIntent struct {
	Blocks []BlockAt
}

// RemoveIntent is a destruction that bypassed the break path (admin edits).
type RemoveIntent struct {
	Loc Location
}

const (
	KindPlace   = "PLACE"
	KindBreak   = "BREAK"
	KindExplode = "EXPLODE"
	KindPiston  = "PISTON"
	KindRemove  = "REMOVE"
)

func (PlaceIntent) Kind() string   { return KindPlace }
func (BreakIntent) Kind() string   { return KindBreak }
func (ExplodeIntent) Kind() string { return KindExplode }
func (PistonIntent) Kind() string  { return KindPiston }
func (RemoveIntent) Kind() string  { return KindRemove }

// Bypass reasons recorded on allowed breaks.
const (
	ReasonBypass    = "BYPASS"
	ReasonOwner     = "OWNER"
	ReasonSuperUser = "SUPER_USER"
	ReasonWornDown  = "REINFORCEMENT_SPENT"
	ReasonHits      = "REINFORCED"
	ReasonNatural   = "UNTRACKED"
	ReasonProtected = "PROTECTED_BLOCK"
)

// Decision is the engine's verdict for one intent.
type Decision struct {
	Intent  Intent
	Outcome Outcome

	// Protected reports whether the intent touched a protected type at all.
	Protected bool
	// Tracked is set when a placement created ledger entries.
	Tracked bool
	Reason  string
	// HitsLeft is the remaining reinforcement after a decremented break.
	HitsLeft uint
	// Blocked lists the protected blocks behind an explosion or piston
	// verdict.
	Blocked []BlockAt
	// Destroyed lists explosion candidates that may still be destroyed.
	Destroyed []BlockAt
}

func (d Decision) Allowed() bool { return d.Outcome == Allowed }
