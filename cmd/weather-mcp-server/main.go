// file: cmd/weather-mcp-server/main.go
package main

import (
	"fmt"
	"io"
	"os"
)

// Version information, set during build via ldflags.
var (
	Version    = "0.0.1"
	commitHash = "unknown"
	buildDate  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
