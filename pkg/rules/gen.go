package rules

import (
	"fmt"

	"github.com/codeready-toolchain/dbscrub/pkg/generators"
)

// Generator adapters over pkg/generators for the common rule bodies. Rules
// needing cross-column references or custom logic declare a closure instead.

// FakeEmail scrubs to prefix+id@domain. An empty prefix defaults to a slug
// of the bound table name, an empty domain to generators.DefaultEmailDomain.
func FakeEmail(opts generators.EmailOptions) Generator {
	return func(rc *RowContext) (any, error) {
		o := opts
		if o.Prefix == "" {
			o.Prefix = generators.Slug(rc.Table())
		}
		return generators.FakeEmail(rc.ID(), o)
	}
}

// FakePhone scrubs to a random numeric string of the given length.
func FakePhone(digits int) Generator {
	return func(rc *RowContext) (any, error) {
		return generators.FakePhone(rc.Seed(), digits), nil
	}
}

// FakePassword scrubs to a bcrypt hash of plaintext. Zero values select the
// package defaults (password123 at minimum cost). The hash is computed once
// at declaration time and reused for every row, so repeated runs over
// unchanged rows produce identical values.
func FakePassword(plaintext string, cost int) Generator {
	hash, err := generators.FakePassword(plaintext, cost)
	return func(*RowContext) (any, error) {
		if err != nil {
			return nil, err
		}
		return hash, nil
	}
}

// FakeID scrubs to a zero-padded identifier derived from the row's numeric
// primary key, falling back to the row seed for non-numeric keys.
func FakeID(prefix string, width int) Generator {
	return func(rc *RowContext) (any, error) {
		var n int64
		switch id := rc.ID().(type) {
		case int64:
			n = id
		case int:
			n = int64(id)
		case int32:
			n = int64(id)
		default:
			n = int64(rc.Seed() % 100_000_000)
		}
		return generators.FakeID(n, prefix, width), nil
	}
}

// MatchLength scrubs free text to replacement text of similar length.
// Empty originals stay empty.
func MatchLength(strategy generators.Strategy) Generator {
	return func(rc *RowContext) (any, error) {
		original, _ := rc.Original().(string)
		out, ok := generators.MatchLength(rc.Seed(), original, strategy)
		if !ok {
			return "", nil
		}
		return out, nil
	}
}

// FakeJSON scrubs a JSON column preserving its structure.
func FakeJSON(opts *generators.JSONOptions) Generator {
	return func(rc *RowContext) (any, error) {
		original := rc.Original()
		if original == nil {
			return nil, nil
		}
		return generators.FakeJSON(rc.Seed(), original, opts)
	}
}

// Static scrubs to a fixed value.
func Static(value any) Generator {
	return func(*RowContext) (any, error) { return value, nil }
}

// Null clears the column.
func Null() Generator {
	return func(*RowContext) (any, error) { return nil, nil }
}

// Template scrubs to fmt.Sprintf(format, rowID).
func Template(format string) Generator {
	return func(rc *RowContext) (any, error) {
		return fmt.Sprintf(format, rc.ID()), nil
	}
}
