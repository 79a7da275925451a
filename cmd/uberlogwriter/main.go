// Command uberlogwriter is the writer (slave) process spawned by an
// uberlog.Logger. It is not meant to be run by hand: a Logger locates and
// spawns it automatically when the application calls Open.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/IMQS/uberlog/internal/writer"
)

const usage = `uberlogwriter is an internal helper process for the uberlog logging
library. It is spawned automatically by a Logger and is not meant to be
run directly.

Usage:
  uberlogwriter <parent_pid> <ring_size_bytes> <absolute_log_path> <max_file_bytes> <max_archive_count>
`

func main() {
	if len(os.Args) != 6 {
		fmt.Print(usage)
		os.Exit(1)
	}

	parentPID, err1 := strconv.Atoi(os.Args[1])
	ringSize, err2 := strconv.ParseUint(os.Args[2], 10, 64)
	logPath := os.Args[3]
	maxFileBytes, err3 := strconv.ParseInt(os.Args[4], 10, 64)
	maxArchives, err4 := strconv.Atoi(os.Args[5])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		fmt.Print(usage)
		os.Exit(1)
	}

	slave := writer.NewSlave(parentPID, ringSize, logPath, maxFileBytes, maxArchives)
	if err := slave.Run(); err != nil {
		fmt.Fprintf(os.Stdout, "uberlogwriter: %v\n", err)
		os.Exit(1)
	}
}
