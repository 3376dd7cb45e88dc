package overlay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dbscrub/pkg/generators"
	"github.com/codeready-toolchain/dbscrub/pkg/rules"
)

func userRegistry(t *testing.T) *rules.Registry {
	t.Helper()
	registry := rules.NewRegistry()
	require.NoError(t, registry.Register(
		rules.NewSanitizer("users").
			Scrub("email", rules.FakeEmail(generators.EmailOptions{Prefix: "user"})).
			Scrub("first_name", rules.Static("redacted")).
			Keep("locale")))
	return registry
}

func userAttrs() map[string]any {
	return map[string]any{
		"id":         int64(7),
		"email":      "alice@real.com",
		"first_name": "Alice",
		"locale":     "en",
		"role":       "admin",
	}
}

func TestMasked_AppliesScrubRule(t *testing.T) {
	o := New(userRegistry(t), Policy{}, true)
	rec := o.NewRecord("users", userAttrs())
	ctx := WithViewer(context.Background(), "some-viewer")

	v, err := rec.Get(ctx, "email")
	require.NoError(t, err)
	assert.Equal(t, "user7@example.test", v, "masked value matches the batch scrub generator")

	v, err = rec.Get(ctx, "first_name")
	require.NoError(t, err)
	assert.Equal(t, "redacted", v)
}

func TestMasked_DisabledBypasses(t *testing.T) {
	o := New(userRegistry(t), Policy{}, false)
	rec := o.NewRecord("users", userAttrs())
	ctx := WithViewer(context.Background(), "v")

	v, err := rec.Get(ctx, "email")
	require.NoError(t, err)
	assert.Equal(t, "alice@real.com", v)
}

func TestMasked_NoEstablishedViewerBypasses(t *testing.T) {
	o := New(userRegistry(t), Policy{}, true)
	rec := o.NewRecord("users", userAttrs())

	// Plain background context: masking must never activate implicitly.
	v, err := rec.Get(context.Background(), "email")
	require.NoError(t, err)
	assert.Equal(t, "alice@real.com", v)
}

func TestMasked_EstablishedNilViewerMasks(t *testing.T) {
	o := New(userRegistry(t), Policy{}, true)
	rec := o.NewRecord("users", userAttrs())

	v, err := rec.Get(WithViewer(context.Background(), nil), "email")
	require.NoError(t, err)
	assert.Equal(t, "user7@example.test", v, "an explicitly absent viewer still counts as established")
}

func TestMasked_ProtectedAndUndeclaredColumnsBypass(t *testing.T) {
	o := New(userRegistry(t), Policy{}, true)
	rec := o.NewRecord("users", userAttrs())
	ctx := WithViewer(context.Background(), "v")

	v, err := rec.Get(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	v, err = rec.Get(ctx, "locale")
	require.NoError(t, err)
	assert.Equal(t, "en", v, "keep-declared columns pass through")

	v, err = rec.Get(ctx, "role")
	require.NoError(t, err)
	assert.Equal(t, "admin", v, "undeclared columns pass through")
}

func TestMasked_UnregisteredTableBypasses(t *testing.T) {
	o := New(userRegistry(t), Policy{}, true)
	rec := o.NewRecord("audit_log", map[string]any{"detail": "x"})

	v, err := rec.Get(WithViewer(context.Background(), "v"), "detail")
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestMasked_PolicyDecidesPerViewer(t *testing.T) {
	o := New(userRegistry(t), Policy{
		Decide: func(_ context.Context, viewer any, _ *Record) bool {
			return viewer != "admin"
		},
	}, true)
	rec := o.NewRecord("users", userAttrs())

	v, err := rec.Get(WithViewer(context.Background(), "admin"), "email")
	require.NoError(t, err)
	assert.Equal(t, "alice@real.com", v)

	v, err = rec.Get(WithViewer(context.Background(), "intern"), "email")
	require.NoError(t, err)
	assert.Equal(t, "user7@example.test", v)
}

func TestMasked_PredicateSeesTrueValues(t *testing.T) {
	// The predicate itself reads a masked attribute; the guard must hand it
	// ground truth without recursing.
	var sawInsidePredicate any
	o := New(userRegistry(t), Policy{
		Decide: func(ctx context.Context, _ any, rec *Record) bool {
			v, err := rec.Get(ctx, "email")
			if err != nil {
				return false
			}
			sawInsidePredicate = v
			return true
		},
	}, true)
	rec := o.NewRecord("users", userAttrs())

	v, err := rec.Get(WithViewer(context.Background(), "v"), "email")
	require.NoError(t, err)
	assert.Equal(t, "alice@real.com", sawInsidePredicate, "the predicate observes the true value")
	assert.Equal(t, "user7@example.test", v, "the outer read is still masked")
}

func TestMasked_CacheInvalidation(t *testing.T) {
	calls := 0
	registry := rules.NewRegistry()
	require.NoError(t, registry.Register(
		rules.NewSanitizer("users").Scrub("email", func(rc *rules.RowContext) (any, error) {
			calls++
			return "masked-" + rc.Raw("email").(string), nil
		})))

	o := New(registry, Policy{}, true)
	rec := o.NewRecord("users", map[string]any{"id": int64(1), "email": "a@b.com"})
	ctx := WithViewer(context.Background(), "v")

	for range 3 {
		v, err := rec.Get(ctx, "email")
		require.NoError(t, err)
		assert.Equal(t, "masked-a@b.com", v)
	}
	assert.Equal(t, 1, calls, "repeated reads hit the cache")

	rec.Set("email", "c@d.com")
	v, err := rec.Get(ctx, "email")
	require.NoError(t, err)
	assert.Equal(t, "masked-c@d.com", v)
	assert.Equal(t, 2, calls, "a write invalidates that attribute's cache entry")

	rec.Reload(map[string]any{"id": int64(1), "email": "e@f.com"})
	v, err = rec.Get(ctx, "email")
	require.NoError(t, err)
	assert.Equal(t, "masked-e@f.com", v)
	assert.Equal(t, 3, calls, "a reload clears the cache")
}

func TestResolveViewer_Chain(t *testing.T) {
	registry := userRegistry(t)
	rec := func(o *Overlay) *Record { return o.NewRecord("users", userAttrs()) }

	t.Run("static value", func(t *testing.T) {
		o := New(registry, Policy{Viewer: "auditor"}, true)
		var got any
		o.policy.Decide = func(_ context.Context, viewer any, _ *Record) bool {
			got = viewer
			return true
		}
		_, err := rec(o).Get(context.Background(), "email")
		require.NoError(t, err)
		assert.Equal(t, "auditor", got)
	})

	t.Run("nullary func", func(t *testing.T) {
		o := New(registry, Policy{Viewer: func() any { return "from-func" }}, true)
		var got any
		o.policy.Decide = func(_ context.Context, viewer any, _ *Record) bool {
			got = viewer
			return true
		}
		_, err := rec(o).Get(context.Background(), "email")
		require.NoError(t, err)
		assert.Equal(t, "from-func", got)
	})

	t.Run("context func", func(t *testing.T) {
		type key struct{}
		o := New(registry, Policy{Viewer: func(ctx context.Context) any {
			return ctx.Value(key{})
		}}, true)
		var got any
		o.policy.Decide = func(_ context.Context, viewer any, _ *Record) bool {
			got = viewer
			return true
		}
		ctx := context.WithValue(context.Background(), key{}, "from-ctx")
		_, err := rec(o).Get(ctx, "email")
		require.NoError(t, err)
		assert.Equal(t, "from-ctx", got)
	})

	t.Run("attribute name falls back to context", func(t *testing.T) {
		o := New(registry, Policy{Viewer: "role"}, true)
		var got any
		o.policy.Decide = func(_ context.Context, viewer any, _ *Record) bool {
			got = viewer
			return true
		}
		_, err := rec(o).Get(context.Background(), "email")
		require.NoError(t, err)
		assert.Equal(t, "admin", got, "record attribute wins")

		o2 := New(registry, Policy{Viewer: "missing_attr", Decide: o.policy.Decide}, true)
		_, err = rec(o2).Get(WithViewer(context.Background(), "ctx-viewer"), "email")
		require.NoError(t, err)
		assert.Equal(t, "ctx-viewer", got, "absent attribute falls back to the context viewer")
	})
}
