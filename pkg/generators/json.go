package generators

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

// JSONOptions adjusts FakeJSON behavior.
type JSONOptions struct {
	// RandomizeKeys replaces object keys with random words as well. By
	// default key sets are preserved so the scrubbed document keeps its
	// schema. Keys on the ancestry of a KeepPath are always preserved.
	RandomizeKeys bool

	// KeepPaths lists dot-separated paths ("user.email", "items.0.sku")
	// whose leaf values are left untouched. Array indices are numeric
	// segments.
	KeepPaths []string
}

// FakeJSON recursively replaces the values of a JSON-like structure while
// preserving its shape: strings become random words, numbers become 0,
// booleans and nulls pass through, objects keep their key sets and arrays
// their lengths. Accepts a decoded tree (map/slice), a raw JSON string, or
// []byte; string and []byte inputs are parsed and re-encoded on return.
func FakeJSON(seed uint64, value any, opts *JSONOptions) (any, error) {
	if opts == nil {
		opts = &JSONOptions{}
	}
	w := &jsonWalker{
		faker: faker(seed),
		keep:  make(map[string]bool, len(opts.KeepPaths)),
		opts:  opts,
	}
	for _, p := range opts.KeepPaths {
		w.keep[p] = true
	}

	switch v := value.(type) {
	case map[string]any, []any:
		return w.walk(v, nil), nil
	case string:
		tree, err := decodeJSON([]byte(v))
		if err != nil {
			return nil, err
		}
		out, err := json.Marshal(w.walk(tree, nil))
		if err != nil {
			return nil, fmt.Errorf("failed to re-encode fake JSON: %w", err)
		}
		return string(out), nil
	case []byte:
		tree, err := decodeJSON(v)
		if err != nil {
			return nil, err
		}
		out, err := json.Marshal(w.walk(tree, nil))
		if err != nil {
			return nil, fmt.Errorf("failed to re-encode fake JSON: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, value)
	}
}

func decodeJSON(raw []byte) (any, error) {
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("malformed JSON input: %w", err)
	}
	switch tree.(type) {
	case map[string]any, []any:
		return tree, nil
	default:
		return nil, fmt.Errorf("%w: JSON input must be an object or array", ErrUnsupportedType)
	}
}

type jsonWalker struct {
	faker *gofakeit.Faker
	keep  map[string]bool
	opts  *JSONOptions
}

func (w *jsonWalker) walk(value any, path []string) any {
	if w.keep[strings.Join(path, ".")] {
		return value
	}

	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		// Sorted key iteration keeps faker consumption deterministic.
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			childPath := append(path, k)
			key := k
			if w.opts.RandomizeKeys && !w.onKeepAncestry(childPath) {
				key = w.freshWord(k)
			}
			out[key] = w.walk(v[k], childPath)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = w.walk(elem, append(path, fmt.Sprint(i)))
		}
		return out
	case string:
		return w.freshWord(v)
	case float64:
		return float64(0)
	case int, int64, json.Number:
		return 0
	case bool, nil:
		return v
	default:
		// Non-JSON scalar smuggled into a decoded tree; zero it like a string.
		return w.freshWord(fmt.Sprint(v))
	}
}

// onKeepAncestry reports whether path is a prefix of any keep path, meaning
// the key at path must survive key randomization.
func (w *jsonWalker) onKeepAncestry(path []string) bool {
	joined := strings.Join(path, ".")
	for p := range w.keep {
		if p == joined || strings.HasPrefix(p, joined+".") {
			return true
		}
	}
	return false
}

// freshWord returns a random word guaranteed to differ from the original.
func (w *jsonWalker) freshWord(original string) string {
	word := w.faker.Word()
	if word == original {
		word = w.faker.Word()
	}
	if word == original {
		word += "2"
	}
	return word
}
