package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// UnbreakableBlocks seeds the registry when no state file exists yet.
	UnbreakableBlocks []string `yaml:"unbreakable-blocks"`
	ReinforcedDefault int      `yaml:"reinforced-default"`
	SuperUsers        []string `yaml:"super-users"`
	BypassPermission  string   `yaml:"bypass-permission"`
	Worlds            []string `yaml:"worlds"`
	StateFile         string   `yaml:"state-file"`

	Messages Messages `yaml:"messages"`
	Feedback Feedback `yaml:"feedback"`
}

type Messages struct {
	BreakDeny string `yaml:"break-deny"`
}

type Feedback struct {
	Sound         string `yaml:"sound"`
	Particle      string `yaml:"particle"`
	ParticleCount int    `yaml:"particle-count"`
}

const (
	DefaultBreakDeny = "§cThat block is unbreakable!"
	DefaultSound     = "ENTITY_ITEM_BREAK"
	DefaultParticle  = "SMOKE"
	DefaultStateFile = "placed_blocks.yml"
)

func Defaults() Config {
	return Config{
		UnbreakableBlocks: []string{},
		ReinforcedDefault: 1,
		SuperUsers:        []string{},
		BypassPermission:  "unbreakable.bypass",
		Worlds:            []string{"world", "world_nether", "world_the_end"},
		StateFile:         DefaultStateFile,
		Messages:          Messages{BreakDeny: DefaultBreakDeny},
		Feedback: Feedback{
			Sound:         DefaultSound,
			Particle:      DefaultParticle,
			ParticleCount: 10,
		},
	}
}

// Load reads config.yml. Keys missing from the file keep their defaults.
func Load(path string) (Config, error) {
	c := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("config.yml: %w", err)
	}
	c.normalize()
	return c, nil
}

func (c *Config) normalize() {
	if c.ReinforcedDefault <= 0 {
		c.ReinforcedDefault = 1
	}
	if strings.TrimSpace(c.BypassPermission) == "" {
		c.BypassPermission = "unbreakable.bypass"
	}
	if strings.TrimSpace(c.StateFile) == "" {
		c.StateFile = DefaultStateFile
	}
	if c.Feedback.ParticleCount < 0 {
		c.Feedback.ParticleCount = 0
	}
}

// SuperUserIDs parses the super-users list. Entries that are not uuids are
// returned separately so the caller can report them.
func (c Config) SuperUserIDs() (ids []uuid.UUID, invalid []string) {
	for _, s := range c.SuperUsers {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			invalid = append(invalid, s)
			continue
		}
		ids = append(ids, id)
	}
	return ids, invalid
}

// StatePath resolves state-file against dataDir unless it is absolute.
func (c Config) StatePath(dataDir string) string {
	if filepath.IsAbs(c.StateFile) {
		return c.StateFile
	}
	return filepath.Join(dataDir, c.StateFile)
}

// Write renders c as YAML; used to materialize a default config file.
func Write(path string, c Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
