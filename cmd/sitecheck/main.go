package main

import (
	"sitecheck/internal/cli"
	_ "sitecheck/internal/fetcher/providers"
	_ "sitecheck/internal/rules/checks"
)

// These variables are populated by the build via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cli.SetBuildInfo(version, commit, date)
	cli.Execute()
}
