// Package overlay applies read-time masking: attribute reads on in-memory
// records return scrubbed values when the active viewer's policy says so,
// without ever writing to storage. Viewer context and the re-entrancy guard
// travel on context.Context, never in global state, so concurrent requests
// cannot corrupt each other's masking decisions.
package overlay

import (
	"context"
	"fmt"
	"sync"

	"github.com/codeready-toolchain/dbscrub/pkg/rules"
)

// DecideFunc is the masking policy predicate. It runs with the re-entrancy
// guard set, so reads it performs through the overlay see true values.
type DecideFunc func(ctx context.Context, viewer any, rec *Record) bool

// Policy resolves the active viewer and decides whether to mask for it.
type Policy struct {
	// Viewer resolves the active viewer: a func(context.Context) any, a
	// func() any, an attribute name looked up on the record first and the
	// context second, or any other value used statically. Nil resolves from
	// the context alone.
	Viewer any
	// Decide is the masking predicate; nil masks for every viewer.
	Decide DecideFunc
}

// Overlay holds the masking configuration for one registry of sanitizers.
type Overlay struct {
	registry *rules.Registry
	policy   Policy
	enabled  bool
}

// New builds an overlay. Masking stays inert unless enabled.
func New(registry *rules.Registry, policy Policy, enabled bool) *Overlay {
	return &Overlay{registry: registry, policy: policy, enabled: enabled}
}

// Enabled reports whether masking is globally on.
func (o *Overlay) Enabled() bool { return o.enabled }

// Record is an in-memory row bound to a table, read through the overlay.
// Masked values are cached per attribute for the record's lifetime; writes
// and reloads invalidate the cache.
type Record struct {
	overlay *Overlay
	table   string

	mu    sync.Mutex
	attrs map[string]any
	cache map[string]any
}

// NewRecord binds a row's attributes to the overlay.
func (o *Overlay) NewRecord(table string, attrs map[string]any) *Record {
	copied := make(map[string]any, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	return &Record{
		overlay: o,
		table:   table,
		attrs:   copied,
		cache:   make(map[string]any),
	}
}

// Table returns the bound table name.
func (r *Record) Table() string { return r.table }

// Raw returns the true stored value, bypassing masking unconditionally.
// Policy predicates and internal logic that need ground truth use this.
func (r *Record) Raw(col string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attrs[col]
}

// Set writes the true value and invalidates that attribute's cached mask.
func (r *Record) Set(col string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attrs[col] = value
	delete(r.cache, col)
}

// Reload replaces the record's attributes, as after a re-fetch from storage,
// and clears the whole mask cache.
func (r *Record) Reload(attrs map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attrs = make(map[string]any, len(attrs))
	for k, v := range attrs {
		r.attrs[k] = v
	}
	r.cache = make(map[string]any)
}

// Get reads col through the overlay: the masked value when the policy
// applies, the true value otherwise.
func (r *Record) Get(ctx context.Context, col string) (any, error) {
	return r.overlay.Masked(ctx, r, col)
}

// Masked resolves one attribute read. Bypass order: re-entrancy guard,
// global enablement, protected columns, unestablished viewer context, policy
// verdict, undeclared column. Anything bypassed returns the true value.
func (o *Overlay) Masked(ctx context.Context, rec *Record, col string) (any, error) {
	if guarded(ctx) {
		return rec.Raw(col), nil
	}
	if !o.enabled {
		return rec.Raw(col), nil
	}

	s, ok := o.registry.ByTable(rec.table)
	if !ok || isProtected(s, col) {
		return rec.Raw(col), nil
	}

	viewer, established := o.resolveViewer(ctx, rec)
	if !established {
		return rec.Raw(col), nil
	}

	if o.policy.Decide != nil && !o.policy.Decide(withGuard(ctx), viewer, rec) {
		return rec.Raw(col), nil
	}

	d, declared := s.Disposition(col)
	if !declared || d.Kind != rules.KindScrub {
		return rec.Raw(col), nil
	}

	return rec.masked(s, col)
}

// masked computes (or returns the cached) scrubbed value for col.
func (r *Record) masked(s *rules.Sanitizer, col string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.cache[col]; ok {
		return v, nil
	}
	rc := rules.NewRowContext(s, r.attrs)
	v, err := rc.Value(col)
	if err != nil {
		return nil, fmt.Errorf("failed to mask %s.%s: %w", r.table, col, err)
	}
	r.cache[col] = v
	return v, nil
}

// resolveViewer walks the configured resolution chain. The second return is
// false only when no viewer source is established at all.
func (o *Overlay) resolveViewer(ctx context.Context, rec *Record) (any, bool) {
	switch v := o.policy.Viewer.(type) {
	case nil:
		return ViewerFrom(ctx)
	case func(context.Context) any:
		return v(ctx), true
	case func() any:
		return v(), true
	case string:
		// Attribute name: the record first, then the context.
		if attr := rec.Raw(v); attr != nil {
			return attr, true
		}
		return ViewerFrom(ctx)
	default:
		return v, true
	}
}

func isProtected(s *rules.Sanitizer, col string) bool {
	for _, p := range s.ProtectedColumns() {
		if p == col {
			return true
		}
	}
	return false
}
