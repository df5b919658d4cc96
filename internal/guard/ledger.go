package guard

import "github.com/google/uuid"

type Outcome int

const (
	Allowed Outcome = iota
	DeniedAndDecremented
	DeniedNoChange
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "ALLOWED"
	case DeniedAndDecremented:
		return "DENIED_DECREMENTED"
	case DeniedNoChange:
		return "DENIED"
	default:
		return "UNKNOWN"
	}
}

func (o Outcome) Denied() bool { return o == DeniedAndDecremented || o == DeniedNoChange }

// Ledger holds the ownership and reinforcement maps. Both share one key space:
// a reinforcement entry never outlives its ownership entry.
type Ledger struct {
	owners map[Location]uuid.UUID
	hits   map[Location]uint
}

func NewLedger() *Ledger {
	return &Ledger{
		owners: map[Location]uuid.UUID{},
		hits:   map[Location]uint{},
	}
}

// OnPlace records a freshly placed protected block. Any stale entry for the
// same location is overwritten.
func (l *Ledger) OnPlace(loc Location, actor uuid.UUID, defaultHits uint) {
	if defaultHits == 0 {
		defaultHits = 1
	}
	l.owners[loc] = actor
	l.hits[loc] = defaultHits
}

// OnBreakAttempt runs for a block whose type is protected.
func (l *Ledger) OnBreakAttempt(loc Location, authorized bool) Outcome {
	if authorized {
		l.clear(loc)
		return Allowed
	}
	hp, ok := l.hits[loc]
	if !ok {
		return DeniedNoChange
	}
	hp--
	if hp == 0 {
		l.clear(loc)
		return Allowed
	}
	l.hits[loc] = hp
	return DeniedAndDecremented
}

// OnRemoveExternally drops both entries for a block destroyed outside the
// break path.
func (l *Ledger) OnRemoveExternally(loc Location) { l.clear(loc) }

func (l *Ledger) clear(loc Location) {
	delete(l.owners, loc)
	delete(l.hits, loc)
}

// RestoreOwner inserts an ownership record without reinforcement, as loaded
// from disk.
func (l *Ledger) RestoreOwner(loc Location, actor uuid.UUID) {
	l.owners[loc] = actor
}

func (l *Ledger) Owner(loc Location) (uuid.UUID, bool) {
	id, ok := l.owners[loc]
	return id, ok
}

func (l *Ledger) Hits(loc Location) (uint, bool) {
	hp, ok := l.hits[loc]
	return hp, ok
}

func (l *Ledger) Len() int           { return len(l.owners) }
func (l *Ledger) ReinforcedLen() int { return len(l.hits) }

// Owners returns a copy of the ownership map.
func (l *Ledger) Owners() map[Location]uuid.UUID {
	out := make(map[Location]uuid.UUID, len(l.owners))
	for k, v := range l.owners {
		out[k] = v
	}
	return out
}

func (l *Ledger) reset() {
	l.owners = map[Location]uuid.UUID{}
	l.hits = map[Location]uint{}
}
