// Package diag emits uberlog's out-of-band warnings: diagnostics about
// the logging system itself (failed to spawn the writer, ring full for
// too long, and the like) that must never go through the log file the
// library is trying to write, since the failure might be about that very
// file.
package diag

import (
	"fmt"
	"os"
)

// Warn writes a formatted warning line to stdout, matching the original
// library's choice of stdout over stderr so that out-of-band diagnostics
// interleave with whatever else a foreground process already prints
// there, rather than competing with a separately-redirected stderr.
func Warn(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format, args...)
}
