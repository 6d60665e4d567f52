// Package config seeds the process-wide constants every sub-execution's
// variable scope starts from: hostArch/hostOS identifying the running
// platform, and the lastExecExitCode/lastExecStdOut/lastExecStdErr
// variables a synchronous exec invocation updates afterward.
package config

import (
	"runtime"

	"github.com/titpetric/piped/internal/value"
)

// HostOS returns the seeded hostOS value for the running process: "linux",
// "macos", or "windows".
func HostOS() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	case "windows":
		return "windows"
	default:
		return "linux"
	}
}

// HostArch returns the seeded hostArch value for the running process:
// "x86", "x86_64", or "arm".
func HostArch() string {
	switch runtime.GOARCH {
	case "386":
		return "x86"
	case "amd64":
		return "x86_64"
	default:
		return "arm"
	}
}

// Seed returns the initial variable map every fresh sub-execution scope is
// built from, before any caller-provided arguments are applied on top.
func Seed() map[string]value.Value {
	return map[string]value.Value{
		"hostArch":         value.String(HostArch()),
		"hostOS":           value.String(HostOS()),
		"lastExecExitCode": value.Integer(0),
		"lastExecStdOut":   value.String(""),
		"lastExecStdErr":   value.String(""),
	}
}
