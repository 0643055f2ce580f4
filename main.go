// Package main is the entry point for the matchrisk CLI tool, which ingests
// tagged match-event timelines and computes defensive risk metrics.
package main

import "github.com/defstats/go-match-risk/cmd"

func main() {
	cmd.Execute()
}
