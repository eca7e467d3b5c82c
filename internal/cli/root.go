package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sitecheck/internal/flags"
	_ "sitecheck/internal/rules/checks" // register the built-in rules
)

// exitUsage is returned when a command line cannot be parsed; like a
// validation failure, nothing was checked.
const exitUsage = 3

var rootCmd = &cobra.Command{
	Use:   "sitecheck",
	Short: "Check a marketing site's routes against its layout and copy rules",
	Long: `sitecheck renders every declared route of a marketing site and reports,
per route and rule, whether the page meets its structural, content and visual
conventions. It only reads pages and never changes them.

Examples:
	# Check the local preview server
	sitecheck check --base-url http://localhost:4321

	# Only the landing pages, as JSON
	sitecheck check --routes "/eu-*,/mid-*" --console-format json

	# Browse the rule catalog
	sitecheck rules list
	sitecheck rules show hero-copy-concise

	# Show the declared routes and their assertion groups
	sitecheck routes

	# Review recorded runs
	sitecheck history
	sitecheck compare

Output:
	Commands write human-readable output to stdout and diagnostics to stderr.
	"check" also supports JSON and NDJSON output (see "sitecheck check --help").`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (page captures, link probes, cache activity)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, `Run "sitecheck --help" for usage.`)
		os.Exit(exitUsage)
	}
}
