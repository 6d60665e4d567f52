// Command piped runs a single pipeline script end to end: parse, then
// execute its root sub-execution, streaming any spawned subprocess's stdout
// live. Exit codes are fixed: 0 on success, -1 on a failure opening the
// script, -2 on a parse failure, 1 for any other fatal error. Everything
// past argument parsing is internal/execution's job, kept out of main so
// it stays testable in isolation.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/titpetric/piped/internal/diag"
	"github.com/titpetric/piped/internal/execution"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <script>\n", os.Args[0])
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) != 1 {
		usage()
		return 1
	}

	_, _, err := execution.Run(args[0], os.Stdout)
	if err == nil {
		return 0
	}

	fmt.Fprintln(os.Stderr, diag.ReportFatal(err))

	var fatal *diag.Fatal
	if errors.As(err, &fatal) {
		switch fatal.Construct {
		case execution.ConstructIO:
			return -1
		case execution.ConstructParse:
			return -2
		}
	}
	return 1
}
