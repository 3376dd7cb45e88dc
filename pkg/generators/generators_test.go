package generators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestFakeEmail(t *testing.T) {
	email, err := FakeEmail(42, EmailOptions{Prefix: "user"})
	require.NoError(t, err)
	assert.Equal(t, "user42@example.test", email)
}

func TestFakeEmail_CustomDomain(t *testing.T) {
	email, err := FakeEmail("Alice Smith", EmailOptions{Domain: "scrubbed.local"})
	require.NoError(t, err)
	assert.Equal(t, "alice-smith@scrubbed.local", email)
}

func TestFakeEmail_NoIdentity(t *testing.T) {
	_, err := FakeEmail(nil, EmailOptions{})
	assert.ErrorIs(t, err, ErrNoIdentity)

	_, err = FakeEmail("", EmailOptions{})
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestFakePhone(t *testing.T) {
	phone := FakePhone(1, 10)
	assert.Len(t, phone, 10)
	for _, r := range phone {
		assert.True(t, r >= '0' && r <= '9', "digit expected, got %q", r)
	}

	// Deterministic under the same seed, default length applied.
	assert.Equal(t, phone, FakePhone(1, 0))
	assert.NotEqual(t, phone, FakePhone(2, 10))
}

func TestFakePassword(t *testing.T) {
	hash, err := FakePassword("", 0)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(DefaultPlaintext)))

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, DefaultBcryptCost, cost)
}

func TestFakeID(t *testing.T) {
	assert.Equal(t, "ID00000042", FakeID(42, "", 0))
	assert.Equal(t, "ACCT0007", FakeID(7, "ACCT", 4))
}

func TestSeedFrom_Stable(t *testing.T) {
	assert.Equal(t, SeedFrom(123), SeedFrom(123))
	assert.Equal(t, SeedFrom("abc"), SeedFrom("abc"))
	assert.NotEqual(t, SeedFrom(123), SeedFrom(124))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "billing-account", Slug("Billing Account"))
	assert.Equal(t, "user.name-1", Slug("User.Name_1!"))
}
