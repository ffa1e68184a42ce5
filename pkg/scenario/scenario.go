// Package scenario holds the static catalog of kit scenarios and the
// marker-to-model fallback map.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/automatar/pkg/marker"
)

// ErrNotFound is returned when no scenario has the requested identifier.
var ErrNotFound = errors.New("scenario: not found")

// Object is a model placed when its marker tag is visible
type Object struct {
	Tag       int    `yaml:"tag" json:"tag"`
	ModelPath string `yaml:"model" json:"model"`
}

// Scenario is a kit demonstration bound to one identifier marker
type Scenario struct {
	IdentifierTag int      `yaml:"identifier_tag" json:"identifier_tag"`
	Name          string   `yaml:"name" json:"name"`
	Description   string   `yaml:"description" json:"description"`
	Objects       []Object `yaml:"objects" json:"objects"`
}

// Catalog is the immutable set of scenarios for the process lifetime
type Catalog struct {
	scenarios []Scenario
	byTag     map[int]int // identifier tag -> index
	direct    map[int]string
}

// file is the YAML layout
type file struct {
	Scenarios []rawScenario       `yaml:"scenarios"`
	Direct    map[string]string `yaml:"direct_models"`
}

// rawScenario accepts tags written as numbers or strings
type rawScenario struct {
	IdentifierTag any    `yaml:"identifier_tag"`
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	Objects       []struct {
		Tag   any    `yaml:"tag"`
		Model string `yaml:"model"`
	} `yaml:"objects"`
}

// New builds a catalog. Later scenarios with a repeated identifier tag are
// rejected.
func New(scenarios []Scenario, direct map[int]string) (*Catalog, error) {
	c := &Catalog{
		scenarios: make([]Scenario, 0, len(scenarios)),
		byTag:     make(map[int]int, len(scenarios)),
		direct:    make(map[int]string, len(direct)),
	}
	for _, s := range scenarios {
		if _, dup := c.byTag[s.IdentifierTag]; dup {
			return nil, fmt.Errorf("scenario: duplicate identifier tag %d (%s)", s.IdentifierTag, s.Name)
		}
		s.Objects = append([]Object(nil), s.Objects...)
		c.byTag[s.IdentifierTag] = len(c.scenarios)
		c.scenarios = append(c.scenarios, s)
	}
	for id, model := range direct {
		c.direct[id] = model
	}
	return c, nil
}

// Parse reads a YAML catalog document
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("scenario: parse yaml: %w", err)
	}

	scenarios := make([]Scenario, 0, len(f.Scenarios))
	for i, raw := range f.Scenarios {
		tag, ok := marker.NormalizeID(raw.IdentifierTag)
		if !ok {
			return nil, fmt.Errorf("scenario: entry %d (%s): invalid identifier_tag %v", i, raw.Name, raw.IdentifierTag)
		}
		s := Scenario{IdentifierTag: tag, Name: raw.Name, Description: raw.Description}
		for _, o := range raw.Objects {
			objTag, ok := marker.NormalizeID(o.Tag)
			if !ok {
				return nil, fmt.Errorf("scenario: %s: invalid object tag %v", raw.Name, o.Tag)
			}
			s.Objects = append(s.Objects, Object{Tag: objTag, ModelPath: o.Model})
		}
		scenarios = append(scenarios, s)
	}

	direct := make(map[int]string, len(f.Direct))
	for k, model := range f.Direct {
		id, ok := marker.NormalizeID(k)
		if !ok {
			return nil, fmt.Errorf("scenario: invalid direct model key %q", k)
		}
		direct[id] = model
	}

	return New(scenarios, direct)
}

// Load reads a YAML catalog from path
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOrDefault loads path, or returns the built-in catalog when path is empty
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Marshal renders the catalog back to YAML
func (c *Catalog) Marshal() ([]byte, error) {
	f := file{Direct: make(map[string]string, len(c.direct))}
	for _, s := range c.scenarios {
		raw := rawScenario{IdentifierTag: s.IdentifierTag, Name: s.Name, Description: s.Description}
		for _, o := range s.Objects {
			raw.Objects = append(raw.Objects, struct {
				Tag   any    `yaml:"tag"`
				Model string `yaml:"model"`
			}{Tag: o.Tag, Model: o.ModelPath})
		}
		f.Scenarios = append(f.Scenarios, raw)
	}
	for id, model := range c.direct {
		f.Direct[fmt.Sprint(id)] = model
	}
	return yaml.Marshal(f)
}

// All returns the scenarios in catalog order
func (c *Catalog) All() []Scenario {
	out := make([]Scenario, len(c.scenarios))
	copy(out, c.scenarios)
	return out
}

// Get returns the scenario with the given identifier tag
func (c *Catalog) Get(tag int) (Scenario, error) {
	i, ok := c.byTag[tag]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %d", ErrNotFound, tag)
	}
	return c.scenarios[i], nil
}

// IdentifierTags returns every identifier tag, ascending
func (c *Catalog) IdentifierTags() []int {
	tags := make([]int, 0, len(c.scenarios))
	for _, s := range c.scenarios {
		tags = append(tags, s.IdentifierTag)
	}
	sort.Ints(tags)
	return tags
}

// DirectModel returns the model bound directly to a marker id
func (c *Catalog) DirectModel(id int) (string, bool) {
	m, ok := c.direct[id]
	return m, ok
}

// ObjectModel returns the model the scenario places for marker id
func (s Scenario) ObjectModel(id int) (string, bool) {
	for _, o := range s.Objects {
		if o.Tag == id {
			return o.ModelPath, true
		}
	}
	return "", false
}

// Len returns the number of scenarios
func (c *Catalog) Len() int {
	return len(c.scenarios)
}
