package guard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedKey = errors.New("malformed location key")
	ErrUnknownWorld = errors.New("unknown world")
)

// Location is the canonical identity of one block position. World names never
// contain ';'.
type Location struct {
	World string
	X     int
	Y     int
	Z     int
}

func (l Location) Pos() [3]int { return [3]int{l.X, l.Y, l.Z} }

// String returns the on-disk key form "world;x;y;z".
func (l Location) String() string {
	var b strings.Builder
	b.Grow(len(l.World) + 24)
	b.WriteString(l.World)
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(l.X))
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(l.Y))
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(l.Z))
	return b.String()
}

// WorldResolver reports whether a world is currently loaded.
type WorldResolver interface {
	HasWorld(name string) bool
}

type WorldSet map[string]struct{}

func NewWorldSet(names ...string) WorldSet {
	s := make(WorldSet, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

func (s WorldSet) Add(name string) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, ";") {
		return
	}
	s[name] = struct{}{}
}

func (s WorldSet) HasWorld(name string) bool {
	_, ok := s[name]
	return ok
}

// ParseLocation decodes a "world;x;y;z" key. A nil resolver accepts any
// non-empty world name.
func ParseLocation(key string, worlds WorldResolver) (Location, error) {
	parts := strings.Split(key, ";")
	if len(parts) != 4 {
		return Location{}, fmt.Errorf("%w: %q: want 4 segments, got %d", ErrMalformedKey, key, len(parts))
	}
	world := parts[0]
	if world == "" {
		return Location{}, fmt.Errorf("%w: %q: empty world", ErrMalformedKey, key)
	}
	if worlds != nil && !worlds.HasWorld(world) {
		return Location{}, fmt.Errorf("%w: %q", ErrUnknownWorld, world)
	}
	var xyz [3]int
	for i, p := range parts[1:] {
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return Location{}, fmt.Errorf("%w: %q: bad coordinate %q", ErrMalformedKey, key, p)
		}
		xyz[i] = int(n)
	}
	return Location{World: world, X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}
