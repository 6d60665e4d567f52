package subexec

import "os"

// writeOutput writes a Print/PrintErr statement's already-rendered bytes to
// the orchestrator's stdout or stderr.
func writeOutput(b []byte, toStderr bool) error {
	if toStderr {
		_, err := os.Stderr.Write(b)
		return err
	}
	_, err := os.Stdout.Write(b)
	return err
}
