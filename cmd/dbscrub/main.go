// dbscrub sanitizes relational databases: it replaces PII with synthetic
// values, prunes aged rows, copies production databases into scrubbed
// replicas, and validates the result for leaks.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
