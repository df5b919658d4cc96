package guard

import "github.com/google/uuid"

type EngineConfig struct {
	// DefaultHits is the reinforcement a freshly placed protected block gets.
	DefaultHits uint
	Auth        Authorizer
	Feedback    FeedbackSink
}

// Engine owns the type registry and both ledgers. It is not safe for
// concurrent use; callers serialize access (see internal/host).
type Engine struct {
	cfg       EngineConfig
	registry  *Registry
	ledger    *Ledger
	observers []func(Decision)
}

func NewEngine(cfg EngineConfig, protected ...BlockType) *Engine {
	if cfg.DefaultHits == 0 {
		cfg.DefaultHits = 1
	}
	if cfg.Auth == nil {
		cfg.Auth = NewPermissionAuthorizer("", nil)
	}
	return &Engine{
		cfg:      cfg,
		registry: NewRegistry(protected...),
		ledger:   NewLedger(),
	}
}

func (e *Engine) Registry() *Registry { return e.registry }
func (e *Engine) Ledger() *Ledger     { return e.ledger }
func (e *Engine) DefaultHits() uint   { return e.cfg.DefaultHits }

// Observe registers fn to receive every decision after it is made.
func (e *Engine) Observe(fn func(Decision)) {
	if fn != nil {
		e.observers = append(e.observers, fn)
	}
}

func (e *Engine) Decide(in Intent) Decision {
	var d Decision
	switch v := in.(type) {
	case PlaceIntent:
		d = e.place(v)
	case BreakIntent:
		d = e.breakBlock(v)
	case ExplodeIntent:
		d = e.explode(v)
	case PistonIntent:
		d = e.piston(v)
	case RemoveIntent:
		d = e.remove(v)
	default:
		d = Decision{Outcome: Allowed}
	}
	d.Intent = in
	for _, fn := range e.observers {
		fn(d)
	}
	return d
}

func (e *Engine) place(in PlaceIntent) Decision {
	if !e.registry.Has(in.At.Block) {
		return Decision{Outcome: Allowed}
	}
	e.ledger.OnPlace(in.At.Loc, in.Actor.ID, e.cfg.DefaultHits)
	return Decision{Outcome: Allowed, Protected: true, Tracked: true, HitsLeft: e.cfg.DefaultHits}
}

func (e *Engine) breakBlock(in BreakIntent) Decision {
	if !e.registry.Has(in.At.Block) {
		return Decision{Outcome: Allowed}
	}
	loc := in.At.Loc
	reason := e.bypassReason(in.Actor, loc)

	out := e.ledger.OnBreakAttempt(loc, reason != "")
	d := Decision{Outcome: out, Protected: true, Reason: reason}
	switch out {
	case Allowed:
		if d.Reason == "" {
			d.Reason = ReasonWornDown
		}
	case DeniedAndDecremented:
		d.Reason = ReasonHits
		d.HitsLeft, _ = e.ledger.Hits(loc)
	case DeniedNoChange:
		d.Reason = ReasonNatural
	}
	if out.Denied() && e.cfg.Feedback != nil {
		e.cfg.Feedback.NotifyDenied(in.Actor, loc)
	}
	return d
}

func (e *Engine) bypassReason(a Actor, loc Location) string {
	if e.cfg.Auth.IsPrivileged(a) {
		return ReasonBypass
	}
	if owner, ok := e.ledger.Owner(loc); ok && owner == a.ID && a.ID != uuid.Nil {
		return ReasonOwner
	}
	if e.cfg.Auth.IsSuperUser(a) {
		return ReasonSuperUser
	}
	return ""
}

// explode strips protected blocks out of the candidate set. Ownership and
// reinforcement are neither consulted nor consumed.
func (e *Engine) explode(in ExplodeIntent) Decision {
	d := Decision{Outcome: Allowed}
	for _, b := range in.Blocks {
		if e.registry.Has(b.Block) {
			d.Blocked = append(d.Blocked, b)
			continue
		}
		d.Destroyed = append(d.Destroyed, b)
	}
	if len(d.Blocked) > 0 {
		d.Protected = true
		d.Reason = ReasonProtected
	}
	return d
}

// piston is all-or-nothing: one protected block cancels the whole move.
func (e *Engine) piston(in PistonIntent) Decision {
	for _, b := range in.Blocks {
		if e.registry.Has(b.Block) {
			return Decision{
				Outcome:   DeniedNoChange,
				Protected: true,
				Reason:    ReasonProtected,
				Blocked:   []BlockAt{b},
			}
		}
	}
	return Decision{Outcome: Allowed}
}

func (e *Engine) remove(in RemoveIntent) Decision {
	_, owned := e.ledger.Owner(in.Loc)
	e.ledger.OnRemoveExternally(in.Loc)
	return Decision{Outcome: Allowed, Protected: owned}
}

// Inspection is a read-only view of one location.
type Inspection struct {
	Owner      uuid.UUID
	Owned      bool
	Hits       uint
	Reinforced bool
}

func (e *Engine) Inspect(loc Location) Inspection {
	var in Inspection
	in.Owner, in.Owned = e.ledger.Owner(loc)
	in.Hits, in.Reinforced = e.ledger.Hits(loc)
	return in
}

// State is the persisted part of the engine. Reinforcement is not part of it.
type State struct {
	Blocks []BlockType
	Placed map[Location]uuid.UUID
}

func (e *Engine) Snapshot() State {
	return State{
		Blocks: e.registry.Sorted(),
		Placed: e.ledger.Owners(),
	}
}

// Restore replaces the registry and ownership ledger. Restored locations have
// no reinforcement until they are placed again.
func (e *Engine) Restore(s State) {
	e.registry = NewRegistry(s.Blocks...)
	e.ledger.reset()
	for loc, owner := range s.Placed {
		e.ledger.RestoreOwner(loc, owner)
	}
}
