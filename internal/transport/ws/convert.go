package ws

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"voxelguard.ai/internal/feedback"
	"voxelguard.ai/internal/guard"
	"voxelguard.ai/internal/host"
	"voxelguard.ai/internal/protocol"
)

// requestError carries a protocol error code back to the reader loop.
type requestError struct {
	code string
	msg  string
}

func (e *requestError) Error() string { return e.code + ": " + e.msg }

func badRequest(code, format string, args ...any) error {
	return &requestError{code: code, msg: fmt.Sprintf(format, args...)}
}

func errorCode(err error) string {
	var re *requestError
	if errors.As(err, &re) {
		return re.code
	}
	if errors.Is(err, host.ErrStopped) {
		return protocol.ErrBusy
	}
	return protocol.ErrInternal
}

// BlockNames normalizes host block ids to catalog ids.
type BlockNames interface {
	Lookup(name string) (string, error)
}

type converter struct {
	worlds guard.WorldResolver
	blocks BlockNames
}

func (c converter) actor(a protocol.ActorRef) (guard.Actor, error) {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return guard.Actor{}, badRequest(protocol.ErrBadRequest, "actor id %q: %v", a.ID, err)
	}
	return guard.Actor{ID: id, Name: a.Name, Permissions: a.Permissions}, nil
}

func (c converter) location(world string, pos [3]int) (guard.Location, error) {
	if c.worlds != nil && !c.worlds.HasWorld(world) {
		return guard.Location{}, badRequest(protocol.ErrUnknownWorld, "world %q", world)
	}
	for _, v := range pos {
		if v < math.MinInt32 || v > math.MaxInt32 {
			return guard.Location{}, badRequest(protocol.ErrBadRequest, "pos %v outside 32-bit range", pos)
		}
	}
	return guard.Location{World: world, X: pos[0], Y: pos[1], Z: pos[2]}, nil
}

// block resolves a single block reference. Unknown ids are an error unless
// lenient is set, in which case the raw id is kept; it can never match a
// registry entry.
func (c converter) block(b protocol.BlockRef, lenient bool) (guard.BlockAt, error) {
	loc, err := c.location(b.World, b.Pos)
	if err != nil {
		return guard.BlockAt{}, err
	}
	id := b.Block
	if c.blocks != nil {
		resolved, err := c.blocks.Lookup(b.Block)
		switch {
		case err == nil:
			id = resolved
		case !lenient:
			return guard.BlockAt{}, badRequest(protocol.ErrUnknownBlock, "block %q", b.Block)
		}
	}
	return guard.BlockAt{Loc: loc, Block: guard.BlockType(id)}, nil
}

func (c converter) blocksOf(refs []protocol.BlockRef) ([]guard.BlockAt, error) {
	out := make([]guard.BlockAt, 0, len(refs))
	for _, r := range refs {
		b, err := c.block(r, true)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func blockRefs(bs []guard.BlockAt) []protocol.BlockRef {
	if len(bs) == 0 {
		return nil
	}
	out := make([]protocol.BlockRef, 0, len(bs))
	for _, b := range bs {
		out = append(out, protocol.BlockRef{World: b.Loc.World, Pos: b.Loc.Pos(), Block: string(b.Block)})
	}
	return out
}

func verdict(id string, d guard.Decision) protocol.VerdictMsg {
	return protocol.VerdictMsg{
		Type:      protocol.TypeVerdict,
		ID:        id,
		Allow:     d.Allowed(),
		Outcome:   d.Outcome.String(),
		Reason:    d.Reason,
		HitsLeft:  d.HitsLeft,
		Survivors: blockRefs(d.Blocked),
		Destroyed: blockRefs(d.Destroyed),
	}
}

func feedbackMsg(n feedback.Notice) protocol.FeedbackMsg {
	return protocol.FeedbackMsg{
		Type:     protocol.TypeFeedback,
		Actor:    n.Actor.String(),
		World:    n.World,
		Pos:      n.Pos,
		Message:  n.Message,
		Sound:    n.Sound,
		Particle: n.Particle,
		Count:    n.Count,
	}
}
