package generators

import "strings"

// Strategy selects how MatchLength builds replacement text.
type Strategy int

const (
	// Sentence builds lorem-style sentences until the target length is reached.
	Sentence Strategy = iota
	// Paragraph builds a flowing paragraph.
	Paragraph
	// Word returns a single word stretched or cut to the target length.
	Word
	// Alphanumeric returns random letters and digits.
	Alphanumeric
)

// lengthTolerance is how far past the original length a replacement may run
// before it gets trimmed.
const lengthTolerance = 10

// MatchLength produces replacement text whose length approximates the
// original's (within lengthTolerance extra characters). Returns ok=false for
// an empty original, in which case the column should be left empty.
func MatchLength(seed uint64, original string, strategy Strategy) (string, bool) {
	target := len(original)
	if target == 0 {
		return "", false
	}
	f := faker(seed)

	var out string
	switch strategy {
	case Word:
		w := f.Word()
		if len(w) < target {
			w += f.LetterN(uint(target - len(w)))
		}
		out = w
	case Alphanumeric:
		out = f.Password(true, true, true, false, false, target)
	case Paragraph:
		out = f.Paragraph(1, 3, 8, " ")
		for len(out) < target {
			out += " " + f.Paragraph(1, 3, 8, " ")
		}
	default: // Sentence
		out = f.Sentence(8)
		for len(out) < target {
			out += " " + f.Sentence(8)
		}
	}
	return trimNear(out, target), true
}

// MatchLengthFunc is the caller-supplied-generator variant: fn receives the
// target length and returns candidate text, which is trimmed to tolerance.
func MatchLengthFunc(original string, fn func(target int) string) (string, bool) {
	target := len(original)
	if target == 0 {
		return "", false
	}
	return trimNear(fn(target), target), true
}

// trimNear cuts s back to at most target+lengthTolerance characters,
// preferring a word boundary past target.
func trimNear(s string, target int) string {
	limit := target + lengthTolerance
	if len(s) <= limit {
		return s
	}
	if idx := strings.LastIndexByte(s[:limit], ' '); idx >= target {
		return s[:idx]
	}
	return s[:limit]
}
