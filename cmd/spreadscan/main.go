// Package main provides the entry point for the spreadscan CLI tool.
package main

import "github.com/spreadscan/spreadscan/cmd/spreadscan/cmd"

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
