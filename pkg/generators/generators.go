// Package generators produces synthetic replacement values for scrubbed
// columns. All generators are pure: output depends only on the inputs and the
// seed, so repeated runs over unchanged rows produce identical replacements.
package generators

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultEmailDomain is a reserved domain that can never deliver mail.
	DefaultEmailDomain = "example.test"

	// DefaultPlaintext is the well-known password stored in scrubbed fixtures.
	DefaultPlaintext = "password123"

	// DefaultBcryptCost keeps bulk hashing fast. Scrubbed hashes are fixture
	// realism, not security.
	DefaultBcryptCost = bcrypt.MinCost
)

// SeedFrom derives a stable 64-bit seed from a row identifier of any type.
func SeedFrom(id any) uint64 {
	h := fnv.New64a()
	fmt.Fprint(h, id)
	return h.Sum64()
}

func faker(seed uint64) *gofakeit.Faker {
	return gofakeit.New(seed)
}

// EmailOptions adjusts FakeEmail composition.
type EmailOptions struct {
	// Domain defaults to DefaultEmailDomain.
	Domain string
	// Prefix is prepended to the identity, typically a slug of the owning
	// entity name ("user" → user42@example.test).
	Prefix string
}

// FakeEmail composes a synthetic address from a row identity. The identity is
// slugged into the local part so the address stays unique per row.
func FakeEmail(identity any, opts EmailOptions) (string, error) {
	local := Slug(fmt.Sprint(identity))
	if identity == nil || local == "" {
		return "", fmt.Errorf("%w: identity %#v", ErrNoIdentity, identity)
	}
	domain := opts.Domain
	if domain == "" {
		domain = DefaultEmailDomain
	}
	return opts.Prefix + local + "@" + domain, nil
}

// FakePhone returns a random numeric string of the given length (default 10).
func FakePhone(seed uint64, digits int) string {
	if digits <= 0 {
		digits = 10
	}
	return faker(seed).DigitN(uint(digits))
}

// FakePassword returns a bcrypt hash of plaintext at the given cost. Zero
// values select DefaultPlaintext and DefaultBcryptCost. bcrypt salts every
// call; callers needing one stable value hash once and reuse the result.
func FakePassword(plaintext string, cost int) (string, error) {
	if plaintext == "" {
		plaintext = DefaultPlaintext
	}
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash fake password: %w", err)
	}
	return string(hash), nil
}

// FakeID returns a zero-padded numeric identifier with a prefix,
// e.g. FakeID(42, "ID", 8) → "ID00000042".
func FakeID(n int64, prefix string, width int) string {
	if prefix == "" {
		prefix = "ID"
	}
	if width <= 0 {
		width = 8
	}
	return fmt.Sprintf("%s%0*d", prefix, width, n)
}

// Slug lowercases s and strips everything that is not a letter, digit, dot,
// or dash. Used for email local parts and entity-name prefixes.
func Slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		case r == ' ', r == '_':
			b.WriteByte('-')
		}
	}
	return b.String()
}
