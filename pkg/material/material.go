// Package material resolves symbolic material names to densities and
// compositions.
//
// A Table starts from a built-in database of Geant4 NIST names and accepts
// custom definitions such as isotopically enriched target materials.
// Resolved materials are cached; the cache only grows, and a resolved
// *Material is the handle every later lookup of the same name returns.
package material

import (
	"bytes"
	_ "embed"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/chazu/detgeom/pkg/errors"
)

//go:embed nist.toml
var builtinTOML []byte

// State is the aggregate state of a material.
type State string

// Material states.
const (
	Solid  State = "solid"
	Liquid State = "liquid"
	Gas    State = "gas"
)

// Component is one element or isotope of a material with its fraction by
// mass (or by abundance, for enriched elements).
type Component struct {
	Element  string  `toml:"element"`
	Fraction float64 `toml:"fraction"`
}

// Material describes a bulk material.
type Material struct {
	Name       string      `toml:"name"`
	Density    float64     `toml:"density"` // g/cm3
	State      State       `toml:"state"`
	Components []Component `toml:"components"`
}

// Validate checks that m is a usable definition.
func (m Material) Validate() error {
	if m.Name == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "material has no name")
	}
	if err := errors.Positive("density of "+m.Name, m.Density); err != nil {
		return err
	}
	sum := 0.0
	for _, c := range m.Components {
		if c.Fraction <= 0 {
			return errors.Dimension("fraction of "+c.Element+" in "+m.Name, c.Fraction, "must be positive")
		}
		sum += c.Fraction
	}
	if len(m.Components) > 0 && math.Abs(sum-1) > 1e-3 {
		return errors.Dimension("component fractions of "+m.Name, sum, "must add up to 1")
	}
	return nil
}

func (m Material) equal(o Material) bool {
	if m.Name != o.Name || m.Density != o.Density || m.State != o.State || len(m.Components) != len(o.Components) {
		return false
	}
	for i := range m.Components {
		if m.Components[i] != o.Components[i] {
			return false
		}
	}
	return true
}

// Table is a concurrency-safe material database.
type Table struct {
	mu       sync.RWMutex
	known    map[string]Material
	resolved map[string]*Material
}

type database struct {
	Material []Material `toml:"material"`
}

// NewTable returns a table holding the built-in materials.
func NewTable() (*Table, error) {
	var db database
	md, err := toml.NewDecoder(bytes.NewReader(builtinTOML)).Decode(&db)
	if err != nil {
		return nil, fmt.Errorf("material: decode built-in database: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("material: unknown keys in built-in database: %v", undecoded)
	}

	t := &Table{
		known:    make(map[string]Material, len(db.Material)),
		resolved: make(map[string]*Material),
	}
	for _, m := range db.Material {
		if m.State == "" {
			m.State = Solid
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("material: built-in %s: %w", m.Name, err)
		}
		t.known[m.Name] = m
	}
	return t, nil
}

// Resolve returns the material called name. It fails with UNKNOWN_MATERIAL
// if the table has no such material.
func (t *Table) Resolve(name string) (*Material, error) {
	t.mu.RLock()
	m, ok := t.resolved[name]
	t.mu.RUnlock()
	if ok {
		return m, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok := t.resolved[name]; ok {
		return m, nil
	}
	def, ok := t.known[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownMaterial, "material %q is not defined", name)
	}
	m = &def
	t.resolved[name] = m
	return m, nil
}

// Define adds a custom material. Defining a name again with an identical
// definition is a no-op; a conflicting definition is rejected.
func (t *Table) Define(m Material) error {
	if m.State == "" {
		m.State = Solid
	}
	if err := m.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.known[m.Name]; ok {
		if prev.equal(m) {
			return nil
		}
		return errors.New(errors.ErrCodeInvalidConfig, "material %q is already defined differently", m.Name)
	}
	m.Components = append([]Component(nil), m.Components...)
	t.known[m.Name] = m
	return nil
}

// Names returns the names of all known materials, sorted.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.known))
	for n := range t.known {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of known materials.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.known)
}
