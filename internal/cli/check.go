package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"sitecheck/internal/config"
	"sitecheck/internal/engine"
	"sitecheck/internal/flags"
	"sitecheck/internal/httpclient"
	"sitecheck/internal/log"
)

// EnvBaseURL provides the default for --base-url.
const EnvBaseURL = "SITECHECK_BASE_URL"

var cfg = config.New()

const checkHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
  SITECHECK_BASE_URL  default for --base-url
  SITECHECK_TOKEN     bearer token for protected preview deployments (--token wins)

  Examples:
    # macOS/Linux
    export SITECHECK_BASE_URL="https://preview.threadmark.dev"
    export SITECHECK_TOKEN="<preview_token>"
    sitecheck check

    # Windows PowerShell
    $env:SITECHECK_BASE_URL = "https://preview.threadmark.dev"
    sitecheck check

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasHelpSubCommands}}Additional help topics:
{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check every declared route of a site",
	Long: `Render every declared route of a site and evaluate its assertion group.

Routes and their assertion groups come from the built-in reference profile or
from a YAML profile (--profile). Each selected rule that belongs to a route's
group yields one result: PASS, FAIL, SKIPPED or ERROR.

Renderers:
	browser (default) drives headless Chrome and captures layout, so visual rules
	(readable width, section rhythm, accent color, trust placement) are evaluated.
	http fetches raw markup only; visual rules are SKIPPED with "layout data unavailable".

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: write an aggregate JSON array or NDJSON stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --report: write a Markdown report
	- --no-console: suppress the console sink (use with --emit/--out for machine output)

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events with a
	"type" field (run.started, route.started, rule.result, route.finished, run.finished).
	Rule results are represented as an Event with type "rule.result" carrying the
	result fields (rule_id, status, message, selector).

History:
	--history records the run in a local SQLite database (default under the XDG
	data directory). See "sitecheck history" and "sitecheck compare".

Exit codes:
	0 = every check passed (or was skipped)
	1 = at least one check failed
	2 = at least one check errored (the run is incomplete)
	3 = fatal error (nothing was checked)

Examples:
  # Check the local preview with Chrome
  sitecheck check --base-url http://localhost:4321

  # Markup-only check of the landing pages, failures only
  sitecheck check --renderer http --routes /eu-merchant,/mid-market --console-filter-status FAIL,ERROR

  # Relax a threshold
  sitecheck check --set readable-width.max_px=680

  # Stream machine-readable events to stdout
  sitecheck check --no-console --emit ndjson
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		applyEnvDefaults(cmd, cfg, os.Getenv)

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		eng := engine.NewEngine(log.New(os.Stderr, cfg.Runtime.Verbose))
		code := eng.Run(ctx, cfg)
		stop()
		os.Exit(code)
	},
}

// applyEnvDefaults fills flags the user did not set from the environment.
func applyEnvDefaults(cmd *cobra.Command, cfg *config.Config, getenv func(string) string) {
	if cmd == nil || getenv == nil {
		return
	}
	if !cmd.Flags().Changed(flags.FlagBaseURL) {
		if v := getenv(EnvBaseURL); v != "" {
			cfg.Target.BaseURL = v
		}
	}
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.SetHelpTemplate(checkHelpTemplate)

	// MAINTAINER NOTE: If you add/change/remove any check-affecting flags here,
	// keep internal/config.Config and its Validate in sync.

	// Target
	checkCmd.Flags().StringVar(&cfg.Target.BaseURL, flags.FlagBaseURL, "", "Base URL the site is served at (default: profile baseURL, then http://localhost:4321)")
	checkCmd.Flags().StringVar(&cfg.Target.Profile, flags.FlagProfile, "", "YAML site profile (default: built-in reference profile)")
	checkCmd.Flags().StringSliceVar(&cfg.Target.Routes, flags.FlagRoutes, nil, "Only check routes matching these path patterns (repeatable; comma-separated accepted; Go path.Match style)")
	checkCmd.Flags().StringSliceVar(&cfg.Target.ExcludeRoutes, flags.FlagExcludeRoutes, nil, "Skip routes matching these path patterns (repeatable; comma-separated accepted)")
	checkCmd.Flags().BoolVar(&cfg.Target.DryRun, flags.FlagDryRun, false, "Resolve routes and rules and print the check plan without rendering")

	// Rules
	checkCmd.Flags().StringVar(&cfg.Rules.Selector, flags.FlagRules, "", "Rule IDs or categories to run, comma-separated (empty = all rules)")
	checkCmd.Flags().StringSliceVar(&cfg.Rules.Set, flags.FlagSet, nil, "Per-rule options as ruleID.option=value (repeatable; comma-separated accepted)")

	// Output
	checkCmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json|ndjson")
	checkCmd.Flags().StringSliceVar(&cfg.Output.ConsoleFilterStatus, flags.FlagConsoleFilterStatus, nil, "Filter console output by status (PASS, FAIL, SKIPPED, ERROR). Comma-separated.")
	checkCmd.Flags().StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown report to this path")
	checkCmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	checkCmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	checkCmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	checkCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out/--report)")

	// Runtime
	checkCmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Routes rendered at once")
	checkCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout")
	checkCmd.Flags().DurationVar(&cfg.Runtime.PageTimeout, flags.FlagPageTimeout, cfg.Runtime.PageTimeout, "Timeout for each page capture")
	checkCmd.Flags().StringVar(&cfg.Runtime.Renderer, flags.FlagRenderer, cfg.Runtime.Renderer, "Page renderer: browser|http")
	checkCmd.Flags().StringVar(&cfg.Runtime.BrowserURL, flags.FlagBrowserURL, "", "DevTools WebSocket URL of a running Chrome (default: launch headless Chrome)")
	checkCmd.Flags().StringVar(&cfg.Runtime.BrowserBin, flags.FlagBrowserBin, "", "Chrome binary to launch")
	checkCmd.Flags().StringVar(&cfg.Runtime.Viewport, flags.FlagViewport, cfg.Runtime.Viewport, "Browser viewport as WIDTHxHEIGHT")
	checkCmd.Flags().StringVar(&cfg.Runtime.Token, flags.FlagToken, "", "Bearer token for protected preview deployments (default: $"+httpclient.EnvToken+")")

	// History
	checkCmd.Flags().BoolVar(&cfg.History.Enabled, flags.FlagHistory, false, "Record the run in the history database")
	checkCmd.Flags().StringVar(&cfg.History.DBPath, flags.FlagHistoryDB, "", "History database path (implies --history)")
}
