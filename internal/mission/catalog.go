package mission

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"keeper.dev/keeper/internal/domain"
)

//go:embed missions.yaml
var defaultCatalogYAML []byte

// Reward is granted once when a completed mission is claimed.
type Reward struct {
	Points   int64  `yaml:"points" json:"points"`
	Fragment string `yaml:"fragment" json:"fragment,omitempty"`
}

// Trigger advances a mission automatically: each matching event adds
// 100/Goal progress for the event's subject user. A non-empty Match also
// requires the event's match key to equal it.
type Trigger struct {
	Event domain.EventType `yaml:"event" json:"event"`
	Match string           `yaml:"match" json:"match,omitempty"`
	Goal  int              `yaml:"goal" json:"goal"`
}

func (t Trigger) matches(event domain.Event) bool {
	if t.Match == "" {
		return true
	}
	m, ok := event.Payload.(domain.Matchable)
	return ok && m.MatchKey() == t.Match
}

// Definition describes a mission.
type Definition struct {
	ID          string        `yaml:"id" json:"id"`
	Title       string        `yaml:"title" json:"title"`
	Description string        `yaml:"description" json:"description,omitempty"`
	Category    string        `yaml:"category" json:"category"`
	TimeLimit   time.Duration `yaml:"time_limit" json:"time_limit,omitempty"`
	Reward      Reward        `yaml:"reward" json:"reward"`
	Trigger     *Trigger      `yaml:"trigger" json:"trigger,omitempty"`
	AutoStart   bool          `yaml:"auto_start" json:"auto_start"`
}

// Catalog indexes mission definitions by id.
type Catalog struct {
	byID map[string]Definition
}

type catalogFile struct {
	Missions []Definition `yaml:"missions"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads a catalog file; an empty path yields the built-in one.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mission catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f catalogFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse mission catalog: %w", err)
	}
	return NewCatalog(f.Missions...)
}

// NewCatalog builds a catalog from definitions.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("mission catalog: duplicate mission %q", d.ID)
		}
		c.byID[d.ID] = d
	}
	return c, nil
}

func (d Definition) validate() error {
	if d.ID == "" {
		return fmt.Errorf("mission catalog: mission without id")
	}
	if d.TimeLimit < 0 {
		return fmt.Errorf("mission catalog: %s: negative time_limit", d.ID)
	}
	if d.Reward.Points < 0 {
		return fmt.Errorf("mission catalog: %s: negative reward points", d.ID)
	}
	if d.Trigger != nil {
		if d.Trigger.Event == "" {
			return fmt.Errorf("mission catalog: %s: trigger without event", d.ID)
		}
		if d.Trigger.Goal <= 0 {
			return fmt.Errorf("mission catalog: %s: trigger goal must be positive", d.ID)
		}
	}
	if d.AutoStart && d.Trigger == nil {
		return fmt.Errorf("mission catalog: %s: auto_start requires a trigger", d.ID)
	}
	return nil
}

// Get returns the definition for id.
func (c *Catalog) Get(id string) (Definition, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// All returns definitions sorted by id.
func (c *Catalog) All() []Definition {
	out := make([]Definition, 0, len(c.byID))
	for _, d := range c.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Triggered returns definitions with a trigger, sorted by id.
func (c *Catalog) Triggered() []Definition {
	var out []Definition
	for _, d := range c.All() {
		if d.Trigger != nil {
			out = append(out, d)
		}
	}
	return out
}
