package guard

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is the append-only record of one protection decision.
type AuditEntry struct {
	Time      time.Time `json:"time"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor,omitempty"`
	ActorName string    `json:"actor_name,omitempty"`
	World     string    `json:"world"`
	Pos       [3]int    `json:"pos"`
	Block     string    `json:"block,omitempty"`
	Outcome   string    `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	HitsLeft  uint      `json:"hits_left,omitempty"`
}

// AuditEntries expands a decision into audit records. Decisions that never
// touched protected state produce none.
func (d Decision) AuditEntries(now time.Time) []AuditEntry {
	if !d.Protected {
		return nil
	}
	now = now.UTC()
	one := func(a Actor, at BlockAt) AuditEntry {
		e := AuditEntry{
			Time:     now,
			Action:   d.Intent.Kind(),
			World:    at.Loc.World,
			Pos:      at.Loc.Pos(),
			Block:    string(at.Block),
			Outcome:  d.Outcome.String(),
			Reason:   d.Reason,
			HitsLeft: d.HitsLeft,
		}
		if a.ID != uuid.Nil {
			e.Actor = a.ID.String()
			e.ActorName = a.Name
		}
		return e
	}
	switch in := d.Intent.(type) {
	case PlaceIntent:
		return []AuditEntry{one(in.Actor, in.At)}
	case BreakIntent:
		return []AuditEntry{one(in.Actor, in.At)}
	case RemoveIntent:
		return []AuditEntry{one(Actor{}, BlockAt{Loc: in.Loc})}
	case ExplodeIntent, PistonIntent:
		out := make([]AuditEntry, 0, len(d.Blocked))
		for _, b := range d.Blocked {
			out = append(out, one(Actor{}, b))
		}
		return out
	}
	return nil
}
