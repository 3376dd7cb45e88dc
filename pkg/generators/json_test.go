package generators

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeJSON_StructurePreserved(t *testing.T) {
	in := map[string]any{
		"a": "x",
		"b": []any{float64(1), float64(2), float64(3)},
	}

	out, err := FakeJSON(1, in, nil)
	require.NoError(t, err)

	obj, ok := out.(map[string]any)
	require.True(t, ok)
	require.Len(t, obj, 2)

	a, ok := obj["a"].(string)
	require.True(t, ok, "key set should be preserved")
	assert.NotEmpty(t, a)
	assert.NotEqual(t, "x", a)

	assert.Equal(t, []any{float64(0), float64(0), float64(0)}, obj["b"])
}

func TestFakeJSON_ScalarsPreserved(t *testing.T) {
	in := map[string]any{"active": true, "deleted": nil}

	out, err := FakeJSON(1, in, nil)
	require.NoError(t, err)

	obj := out.(map[string]any)
	assert.Equal(t, true, obj["active"])
	assert.Nil(t, obj["deleted"])
}

func TestFakeJSON_KeepPaths(t *testing.T) {
	in := map[string]any{
		"user": map[string]any{
			"email": "x@y.com",
			"name":  "X",
		},
	}

	out, err := FakeJSON(1, in, &JSONOptions{KeepPaths: []string{"user.email"}})
	require.NoError(t, err)

	user := out.(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "x@y.com", user["email"])
	assert.NotEqual(t, "X", user["name"])
	assert.NotEmpty(t, user["name"])
}

func TestFakeJSON_KeepPathsSurviveKeyRandomization(t *testing.T) {
	in := map[string]any{
		"user": map[string]any{
			"email": "x@y.com",
			"name":  "X",
		},
	}

	out, err := FakeJSON(1, in, &JSONOptions{
		RandomizeKeys: true,
		KeepPaths:     []string{"user.email"},
	})
	require.NoError(t, err)

	// The keep-path ancestry keys survive; the sibling key is randomized.
	user, ok := out.(map[string]any)["user"].(map[string]any)
	require.True(t, ok, "keep-path ancestor key must be preserved")
	assert.Equal(t, "x@y.com", user["email"])
	_, nameKept := user["name"]
	assert.False(t, nameKept, "non-kept keys should be randomized")
}

func TestFakeJSON_ArrayIndexKeepPath(t *testing.T) {
	in := map[string]any{
		"items": []any{
			map[string]any{"sku": "A-1", "desc": "secret"},
		},
	}

	out, err := FakeJSON(1, in, &JSONOptions{KeepPaths: []string{"items.0.sku"}})
	require.NoError(t, err)

	item := out.(map[string]any)["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "A-1", item["sku"])
	assert.NotEqual(t, "secret", item["desc"])
}

func TestFakeJSON_StringInput(t *testing.T) {
	out, err := FakeJSON(1, `{"a":"x","n":5}`, nil)
	require.NoError(t, err)

	var tree map[string]any
	require.NoError(t, json.Unmarshal([]byte(out.(string)), &tree))
	assert.NotEqual(t, "x", tree["a"])
	assert.Equal(t, float64(0), tree["n"])
}

func TestFakeJSON_MalformedString(t *testing.T) {
	_, err := FakeJSON(1, `{"a":`, nil)
	assert.Error(t, err)
}

func TestFakeJSON_UnsupportedInput(t *testing.T) {
	_, err := FakeJSON(1, 42, nil)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestFakeJSON_Deterministic(t *testing.T) {
	in := map[string]any{"a": "x", "b": "y", "c": []any{"z"}}

	first, err := FakeJSON(5, in, nil)
	require.NoError(t, err)
	second, err := FakeJSON(5, in, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
