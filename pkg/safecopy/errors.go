package safecopy

import (
	"fmt"

	"github.com/codeready-toolchain/dbscrub/pkg/database"
)

// SourceWriteAccessError reports that the source connection accepted a write
// while read-only enforcement was on. The workflow aborts before any copy.
type SourceWriteAccessError struct {
	URL string
}

func (e *SourceWriteAccessError) Error() string {
	return fmt.Sprintf("source %s accepts writes; refusing to continue with read-only enforcement on",
		database.ElideCredentials(e.URL))
}
