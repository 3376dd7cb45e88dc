package generators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchLength_EmptyOriginal(t *testing.T) {
	out, ok := MatchLength(1, "", Sentence)
	assert.False(t, ok)
	assert.Empty(t, out)
}

func TestMatchLength_Strategies(t *testing.T) {
	original := strings.Repeat("original text ", 5) // 70 chars

	for _, strategy := range []Strategy{Sentence, Paragraph, Word, Alphanumeric} {
		out, ok := MatchLength(7, original, strategy)
		require.True(t, ok, "strategy %d", strategy)
		assert.NotEmpty(t, out)
		assert.LessOrEqual(t, len(out), len(original)+lengthTolerance,
			"strategy %d overshot tolerance", strategy)
	}
}

func TestMatchLength_Deterministic(t *testing.T) {
	a, _ := MatchLength(99, "some sensitive free text field", Sentence)
	b, _ := MatchLength(99, "some sensitive free text field", Sentence)
	assert.Equal(t, a, b)
}

func TestMatchLength_WordIsSingleWord(t *testing.T) {
	out, ok := MatchLength(3, "confidential", Word)
	require.True(t, ok)
	assert.NotContains(t, out, " ")
}

func TestMatchLengthFunc(t *testing.T) {
	out, ok := MatchLengthFunc("0123456789", func(target int) string {
		return strings.Repeat("x", target+50)
	})
	require.True(t, ok)
	assert.LessOrEqual(t, len(out), 10+lengthTolerance)

	_, ok = MatchLengthFunc("", func(int) string { return "never" })
	assert.False(t, ok)
}
