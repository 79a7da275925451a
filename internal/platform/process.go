// Package platform isolates the handful of OS-specific operations the
// writer process needs: spawning (producer side) and detecting that the
// parent that spawned it has died (writer side).
package platform

import (
	"os"
	"os/exec"
)

// Spawn starts path as a child process with the given argv (argv[0] is
// conventionally path itself, to match the argc==6 contract the writer
// binary expects). The child inherits the producer's stdout/stderr so
// that out-of-band warnings the writer prints during startup are visible
// wherever the producer's own are.
func Spawn(path string, argv []string) (*exec.Cmd, error) {
	cmd := exec.Command(path, argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}
