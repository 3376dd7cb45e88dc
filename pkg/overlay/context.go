package overlay

import "context"

type viewerKey struct{}
type guardKey struct{}

// viewerBox distinguishes an explicitly established viewer (possibly nil)
// from a context where no viewer was ever set. Masking must never activate
// implicitly during process bootstrap.
type viewerBox struct {
	viewer any
}

// WithViewer establishes the active viewer on the context. A nil viewer is
// "established but absent" and still enables masking decisions.
func WithViewer(ctx context.Context, viewer any) context.Context {
	return context.WithValue(ctx, viewerKey{}, &viewerBox{viewer: viewer})
}

// ViewerFrom returns the established viewer and whether one was ever set.
func ViewerFrom(ctx context.Context) (any, bool) {
	box, ok := ctx.Value(viewerKey{}).(*viewerBox)
	if !ok {
		return nil, false
	}
	return box.viewer, true
}

// withGuard marks the context as inside a policy evaluation, so reads made
// by the predicate itself bypass masking instead of recursing.
func withGuard(ctx context.Context) context.Context {
	return context.WithValue(ctx, guardKey{}, true)
}

func guarded(ctx context.Context) bool {
	v, _ := ctx.Value(guardKey{}).(bool)
	return v
}
