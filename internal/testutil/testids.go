package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
)

var runCounter atomic.Int64

// NewTestRunID returns a process-unique run ID for tests. Pass t.Name() so
// journal files can be traced back to the test that wrote them. Slashes from
// subtest names are replaced, since run IDs become file names.
func NewTestRunID(tname string) string {
	return fmt.Sprintf("run-%s-%d", strings.ReplaceAll(tname, "/", "_"), runCounter.Add(1))
}
