package engine

import (
	"fmt"

	"github.com/chazu/detgeom/pkg/array"
)

// catalogueBuilder collects declarations while a program runs.
type catalogueBuilder struct {
	entries   []array.Entry
	targets   []array.Source
	names     map[string]bool
	useTarget *bool // nil: build targets when any are declared
}

func newCatalogueBuilder() *catalogueBuilder {
	return &catalogueBuilder{names: make(map[string]bool)}
}

// claim reserves a name; a duplicate fails on its own source line.
func (cb *catalogueBuilder) claim(name string) error {
	if cb.names[name] {
		return fmt.Errorf("%q is declared twice", name)
	}
	cb.names[name] = true
	return nil
}

func (cb *catalogueBuilder) addEntry(e array.Entry) error {
	if err := cb.claim(e.Name); err != nil {
		return err
	}
	cb.entries = append(cb.entries, e)
	return nil
}

func (cb *catalogueBuilder) addTarget(s array.Source) error {
	if err := cb.claim(s.Name()); err != nil {
		return err
	}
	cb.targets = append(cb.targets, s)
	return nil
}

func (cb *catalogueBuilder) catalogue() *array.Catalogue {
	use := len(cb.targets) > 0
	if cb.useTarget != nil {
		use = *cb.useTarget
	}
	return &array.Catalogue{Entries: cb.entries, Targets: cb.targets, UseTarget: use}
}
