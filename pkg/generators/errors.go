package generators

import "errors"

var (
	// ErrNoIdentity is returned when a fake email cannot derive an identity
	// from its input (nil or empty).
	ErrNoIdentity = errors.New("no identity derivable for fake email")

	// ErrUnsupportedType is returned when FakeJSON receives a value that is
	// not an object, array, or JSON string.
	ErrUnsupportedType = errors.New("unsupported input type for fake JSON")
)
