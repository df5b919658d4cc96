package commands

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"voxelguard.ai/internal/catalogs"
	"voxelguard.ai/internal/guard"
)

const (
	PermAdd    = "unbreakable.add"
	PermRemove = "unbreakable.remove"
	PermList   = "unbreakable.list"
	PermCheck  = "unbreakable.check"
)

var subcommands = []string{"add", "remove", "list", "check"}

const (
	msgUsage         = "§e/unbreakable <add|remove|list|check>"
	msgUnknown       = "§cUnknown subcommand!"
	msgNoPermission  = "§cNo permission!"
	msgInvalidBlock  = "§cInvalid block!"
	msgLookAtBlock   = "§cLook at a block!"
	msgBadLocation   = "§cInvalid location! Use world;x;y;z or x y z"
	msgAlready       = "§eAlready unbreakable!"
	msgNotProtected  = "§eBlock is not unbreakable!"
	msgListHeader    = "§e--- Unbreakable Blocks ---"
	msgListFooter    = "§e------------------------"
	msgNoOwner       = "§eBlock is unbreakable but has no owner (natural/untracked)."
	msgNoRecord      = "§eNo recorded owner at that location."
	msgUnknownPlayer = "Unknown"
)

// Caller is the command sender as seen by the host.
type Caller struct {
	Actor guard.Actor
	World string
	// Target is the block the caller is looking at, nil when there is none.
	Target *guard.BlockAt
}

type Result struct {
	Lines   []string
	Changed bool
}

// Handler serves /unbreakable. It mutates the engine it is given and must run
// on the goroutine that owns that engine.
type Handler struct {
	Engine *guard.Engine
	Blocks catalogs.BlockCatalog
	Worlds guard.WorldResolver

	// NameOf resolves an owner id to a display name; optional.
	NameOf func(uuid.UUID) string
	// OnChange runs after the registry was modified.
	OnChange func()
}

func (h *Handler) Run(c Caller, args []string) Result {
	if len(args) == 0 {
		return reply(msgUsage)
	}
	var res Result
	switch strings.ToLower(args[0]) {
	case "add":
		res = h.add(c, args[1:])
	case "remove":
		res = h.remove(c, args[1:])
	case "list":
		res = h.list(c)
	case "check":
		res = h.check(c, args[1:])
	default:
		return reply(msgUnknown)
	}
	if res.Changed && h.OnChange != nil {
		h.OnChange()
	}
	return res
}

func (h *Handler) add(c Caller, args []string) Result {
	if !c.Actor.Can(PermAdd) {
		return reply(msgNoPermission)
	}
	bt, errMsg := h.blockArg(c, args)
	if errMsg != "" {
		return reply(errMsg)
	}
	if !h.Engine.Registry().Add(bt) {
		return reply(msgAlready)
	}
	return Result{Lines: []string{"§aAdded " + string(bt) + " as unbreakable!"}, Changed: true}
}

func (h *Handler) remove(c Caller, args []string) Result {
	if !c.Actor.Can(PermRemove) {
		return reply(msgNoPermission)
	}
	bt, errMsg := h.blockArg(c, args)
	if errMsg != "" {
		return reply(errMsg)
	}
	if !h.Engine.Registry().Remove(bt) {
		return reply(msgNotProtected)
	}
	return Result{Lines: []string{"§aRemoved " + string(bt) + " from unbreakable blocks!"}, Changed: true}
}

func (h *Handler) list(c Caller) Result {
	if !c.Actor.Can(PermList) {
		return reply(msgNoPermission)
	}
	types := h.Engine.Registry().Sorted()
	lines := make([]string, 0, len(types)+2)
	lines = append(lines, msgListHeader)
	for _, bt := range types {
		lines = append(lines, "§f"+string(bt))
	}
	lines = append(lines, msgListFooter)
	return Result{Lines: lines}
}

func (h *Handler) check(c Caller, args []string) Result {
	if !c.Actor.Can(PermCheck) {
		return reply(msgNoPermission)
	}

	var loc guard.Location
	noOwner := msgNoRecord
	switch len(args) {
	case 0:
		if !h.hasTarget(c) {
			return reply(msgLookAtBlock)
		}
		if !h.Engine.Registry().Has(c.Target.Block) {
			return reply(msgNotProtected)
		}
		loc = c.Target.Loc
		noOwner = msgNoOwner
	case 1:
		l, err := guard.ParseLocation(args[0], h.Worlds)
		if err != nil {
			return reply(msgBadLocation)
		}
		loc = l
	case 3:
		l, ok := parseXYZ(c.World, args)
		if !ok || (h.Worlds != nil && !h.Worlds.HasWorld(l.World)) {
			return reply(msgBadLocation)
		}
		loc = l
	default:
		return reply(msgBadLocation)
	}

	in := h.Engine.Inspect(loc)
	if !in.Owned {
		return reply(noOwner)
	}
	name := msgUnknownPlayer
	if h.NameOf != nil {
		if n := h.NameOf(in.Owner); n != "" {
			name = n
		}
	}
	lines := []string{"§eBlock owner: §f" + name + " §7(" + in.Owner.String() + ")"}
	if in.Reinforced {
		lines = append(lines, "§eReinforcement: §f"+strconv.FormatUint(uint64(in.Hits), 10)+" hit(s) left")
	}
	return Result{Lines: lines}
}

// Complete returns tab completions for a partially typed command line.
func (h *Handler) Complete(c Caller, args []string) []string {
	switch len(args) {
	case 0:
		return append([]string(nil), subcommands...)
	case 1:
		p := strings.ToLower(args[0])
		out := make([]string, 0, len(subcommands))
		for _, s := range subcommands {
			if strings.HasPrefix(s, p) {
				out = append(out, s)
			}
		}
		return out
	case 2:
		switch strings.ToLower(args[0]) {
		case "add", "remove":
			return h.Blocks.WithPrefix(args[1])
		}
	}
	return []string{}
}

func (h *Handler) blockArg(c Caller, args []string) (guard.BlockType, string) {
	if len(args) >= 1 {
		id, err := h.Blocks.Lookup(args[0])
		if err != nil {
			return "", msgInvalidBlock
		}
		return guard.BlockType(id), ""
	}
	if !h.hasTarget(c) {
		return "", msgLookAtBlock
	}
	id, err := h.Blocks.Lookup(string(c.Target.Block))
	if err != nil {
		return "", msgInvalidBlock
	}
	return guard.BlockType(id), ""
}

func (h *Handler) hasTarget(c Caller) bool {
	return c.Target != nil && c.Target.Block != "" && !h.Blocks.IsAir(string(c.Target.Block))
}

func parseXYZ(world string, args []string) (guard.Location, bool) {
	if world == "" {
		return guard.Location{}, false
	}
	var v [3]int
	for i := 0; i < 3; i++ {
		n, err := strconv.ParseInt(args[i], 10, 32)
		if err != nil {
			return guard.Location{}, false
		}
		v[i] = int(n)
	}
	return guard.Location{World: world, X: v[0], Y: v[1], Z: v[2]}, true
}

func reply(lines ...string) Result { return Result{Lines: lines} }
