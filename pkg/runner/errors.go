package runner

import "errors"

// ErrUnknownSanitizer is returned when a requested friendly name is not
// registered. An unknown name fails the whole run instead of being skipped.
var ErrUnknownSanitizer = errors.New("unknown sanitizer")
