// Package main is the entry point for the audiosplit command line tool.
//
// Usage:
//
//	audiosplit [flags] <command> <file>
//
// Commands:
//
//	info   - Show duration, channels and sample rate of a file
//	plan   - Print detected silences and the segment plan as JSON
//	split  - Render each planned segment to a WAV file
package main

import (
	"fmt"
	"os"

	"github.com/maauso/audiosplit-api/cmd/audiosplit/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
