package catalogs

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed defaults/*.json
var defaultFS embed.FS

var (
	ErrUnknownBlock    = errors.New("unknown block type")
	ErrUnknownSound    = errors.New("unknown sound")
	ErrUnknownParticle = errors.New("unknown particle")
)

type Catalogs struct {
	Blocks   BlockCatalog
	Feedback FeedbackCatalog
}

type BlockCatalog struct {
	Palette       []string
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID  string `json:"id"`
	Air bool   `json:"air,omitempty"`
}

// FeedbackCatalog enumerates the sound and particle names the host accepts.
type FeedbackCatalog struct {
	Sounds    map[string]struct{}
	Particles map[string]struct{}
	Digest    string
}

type feedbackFile struct {
	Sounds    []string `json:"sounds"`
	Particles []string `json:"particles"`
}

// Load reads blocks.json and feedback.json from configDir. Files that do not
// exist fall back to the built-in defaults.
func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	raw, err := readOrDefault(configDir, "blocks.json")
	if err != nil {
		return nil, err
	}
	if err := loadBlocks(raw, &c.Blocks); err != nil {
		return nil, err
	}
	raw, err = readOrDefault(configDir, "feedback.json")
	if err != nil {
		return nil, err
	}
	if err := loadFeedback(raw, &c.Feedback); err != nil {
		return nil, err
	}
	return &c, nil
}

// Defaults returns the built-in catalogs.
func Defaults() *Catalogs {
	c, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("catalogs: built-in defaults: %v", err))
	}
	return c
}

func readOrDefault(configDir, name string) ([]byte, error) {
	if configDir != "" {
		raw, err := os.ReadFile(filepath.Join(configDir, name))
		if err == nil {
			return raw, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return defaultFS.ReadFile("defaults/" + name)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func normalize(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(strings.ToLower(name), "minecraft:")
	return strings.ToUpper(name)
}

func loadBlocks(raw []byte, out *BlockCatalog) error {
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		d.ID = normalize(d.ID)
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		out.Defs[d.ID] = d
	}
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadFeedback(raw []byte, out *FeedbackCatalog) error {
	out.Digest = sha256Hex(raw)

	var f feedbackFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("feedback.json: %w", err)
	}
	out.Sounds = make(map[string]struct{}, len(f.Sounds))
	for _, s := range f.Sounds {
		if s = normalize(s); s != "" {
			out.Sounds[s] = struct{}{}
		}
	}
	out.Particles = make(map[string]struct{}, len(f.Particles))
	for _, p := range f.Particles {
		if p = normalize(p); p != "" {
			out.Particles[p] = struct{}{}
		}
	}
	return nil
}

// Lookup resolves a user-supplied block name (case-insensitive, optional
// "minecraft:" prefix) to its catalog id.
func (c BlockCatalog) Lookup(name string) (string, error) {
	id := normalize(name)
	if _, ok := c.Defs[id]; !ok || id == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownBlock, name)
	}
	return id, nil
}

func (c BlockCatalog) IsAir(id string) bool {
	return c.Defs[id].Air
}

// WithPrefix returns the palette ids starting with prefix, case-insensitive.
func (c BlockCatalog) WithPrefix(prefix string) []string {
	p := normalize(prefix)
	out := make([]string, 0, 16)
	for _, id := range c.Palette {
		if strings.HasPrefix(id, p) {
			out = append(out, id)
		}
	}
	return out
}

func (c FeedbackCatalog) Sound(name string) (string, error) {
	id := normalize(name)
	if _, ok := c.Sounds[id]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSound, name)
	}
	return id, nil
}

func (c FeedbackCatalog) Particle(name string) (string, error) {
	id := normalize(name)
	if _, ok := c.Particles[id]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownParticle, name)
	}
	return id, nil
}
