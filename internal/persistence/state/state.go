package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"voxelguard.ai/internal/guard"
)

const (
	keyBlocks = "unbreakable-blocks"
	keyPlaced = "placed"
)

// ErrDamaged wraps a state file that is not valid YAML at all.
var ErrDamaged = errors.New("state file damaged")

// BlockResolver validates block ids read from disk.
type BlockResolver interface {
	Lookup(name string) (string, error)
}

// LoadReport counts what a load kept and what it skipped.
type LoadReport struct {
	Blocks        int
	SkippedBlocks int
	Placed        int
	SkippedPlaced int
	Found         bool
}

// Load reads the state document at path. Individual malformed records are
// skipped and counted; only an unreadable or non-YAML file is an error. A
// missing file is an empty state with Found=false.
func Load(path string, worlds guard.WorldResolver, blocks BlockResolver) (guard.State, LoadReport, error) {
	st := guard.State{Placed: map[guard.Location]uuid.UUID{}}
	var rep LoadReport

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, rep, nil
		}
		return st, rep, err
	}
	rep.Found = true

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return st, rep, fmt.Errorf("%w: %s: %v", ErrDamaged, filepath.Base(path), err)
	}
	root := documentRoot(&doc)
	if root == nil {
		return st, rep, nil
	}

	seen := map[guard.BlockType]struct{}{}
	if n := lookup(root, keyBlocks); n != nil && n.Kind == yaml.SequenceNode {
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				rep.SkippedBlocks++
				continue
			}
			id := strings.TrimSpace(item.Value)
			if blocks != nil {
				resolved, err := blocks.Lookup(id)
				if err != nil {
					rep.SkippedBlocks++
					continue
				}
				id = resolved
			}
			if id == "" {
				rep.SkippedBlocks++
				continue
			}
			if _, dup := seen[guard.BlockType(id)]; dup {
				continue
			}
			seen[guard.BlockType(id)] = struct{}{}
			st.Blocks = append(st.Blocks, guard.BlockType(id))
		}
	}
	rep.Blocks = len(st.Blocks)

	if n := lookup(root, keyPlaced); n != nil && n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
				rep.SkippedPlaced++
				continue
			}
			loc, err := guard.ParseLocation(k.Value, worlds)
			if err != nil {
				rep.SkippedPlaced++
				continue
			}
			owner, err := uuid.Parse(strings.TrimSpace(v.Value))
			if err != nil {
				rep.SkippedPlaced++
				continue
			}
			st.Placed[loc] = owner
		}
	}
	rep.Placed = len(st.Placed)
	return st, rep, nil
}

// Save writes st to path, replacing the registry list and the placed section
// wholesale. Other top-level keys already in the file are kept.
func Save(path string, st guard.State) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	if raw, err := os.ReadFile(path); err == nil {
		var doc yaml.Node
		if yaml.Unmarshal(raw, &doc) == nil {
			if r := documentRoot(&doc); r != nil {
				root = r
			}
		}
	}

	blocks := make([]string, 0, len(st.Blocks))
	for _, b := range st.Blocks {
		blocks = append(blocks, string(b))
	}
	sort.Strings(blocks)
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, b := range blocks {
		seq.Content = append(seq.Content, scalar(b))
	}
	set(root, keyBlocks, seq)

	keys := make([]string, 0, len(st.Placed))
	byKey := make(map[string]string, len(st.Placed))
	for loc, owner := range st.Placed {
		k := loc.String()
		keys = append(keys, k)
		byKey[k] = owner.String()
	}
	sort.Strings(keys)
	placed := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		placed.Content = append(placed.Content, scalar(k), scalar(byKey[k]))
	}
	set(root, keyPlaced, placed)

	b, err := yaml.Marshal(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}})
	if err != nil {
		return err
	}
	return writeFileAtomic(path, b)
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	if r := doc.Content[0]; r.Kind == yaml.MappingNode {
		return r
	}
	return nil
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func set(m *yaml.Node, key string, v *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = v
			return
		}
	}
	m.Content = append(m.Content, scalar(key), v)
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func writeFileAtomic(path string, b []byte) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Store binds a state file path to the engine lifecycle.
type Store struct {
	Path   string
	Worlds guard.WorldResolver
	Blocks BlockResolver
}

func (s Store) Load() (guard.State, LoadReport, error) { return Load(s.Path, s.Worlds, s.Blocks) }
func (s Store) Save(st guard.State) error             { return Save(s.Path, st) }

// MoveAside renames a damaged state file so the next save starts fresh.
func (s Store) MoveAside() (string, error) {
	aside := s.Path + ".damaged"
	return aside, os.Rename(s.Path, aside)
}
