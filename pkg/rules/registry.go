package rules

import (
	"fmt"
	"sort"
)

// Registry holds the registered sanitizers, looked up by bound table or by
// friendly name. Built once at startup and read-only afterwards; construct a
// fresh instance per test instead of sharing one.
type Registry struct {
	byTable map[string]*Sanitizer
	byName  map[string]*Sanitizer
	order   []*Sanitizer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byTable: make(map[string]*Sanitizer),
		byName:  make(map[string]*Sanitizer),
	}
}

// Register adds a sanitizer. Declaration errors recorded by the builder and
// duplicate table or name bindings surface here.
func (r *Registry) Register(s *Sanitizer) error {
	if s.err != nil {
		return s.err
	}
	if _, exists := r.byTable[s.table]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSanitizer, s.table)
	}
	if _, exists := r.byName[s.name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, s.name)
	}
	r.byTable[s.table] = s
	r.byName[s.name] = s
	r.order = append(r.order, s)
	return nil
}

// MustRegister is Register for static rule files, panicking on declaration
// errors so they surface at startup.
func (r *Registry) MustRegister(s *Sanitizer) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// ByName looks up a sanitizer by friendly name.
func (r *Registry) ByName(name string) (*Sanitizer, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// ByTable looks up a sanitizer by bound table.
func (r *Registry) ByTable(table string) (*Sanitizer, bool) {
	s, ok := r.byTable[table]
	return s, ok
}

// All returns the sanitizers in registration order.
func (r *Registry) All() []*Sanitizer {
	return append([]*Sanitizer(nil), r.order...)
}

// Names returns all friendly names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CoveredTables returns the bound tables as a set, used by the pruning
// engine's conflict detection and the schema advisor.
func (r *Registry) CoveredTables() map[string]bool {
	out := make(map[string]bool, len(r.byTable))
	for table := range r.byTable {
		out[table] = true
	}
	return out
}
