package flags

// Package flags defines canonical CLI flag names shared across the CLI and engine.
// Keeping these as constants helps avoid drift between Cobra flag wiring and other
// code paths that need to reference flags (e.g. report reproducibility command
// generation).
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Target.BaseURL, flags.FlagBaseURL, "", "...")
//	arg := "--" + flags.FlagBaseURL
const (
	// Target
	FlagBaseURL       = "base-url"
	FlagProfile       = "profile"
	FlagRoutes        = "routes"
	FlagExcludeRoutes = "exclude-routes"
	FlagDryRun        = "dry-run"

	// Rules
	FlagRules = "rules"
	FlagSet   = "set"

	// Output
	FlagConsoleFormat       = "console-format"
	FlagConsoleFilterStatus = "console-filter-status"
	FlagReport              = "report"
	FlagOut                 = "out"
	FlagOutFormat           = "out-format"
	FlagEmit                = "emit"
	FlagNoConsole           = "no-console"

	// Runtime
	FlagConcurrency = "concurrency"
	FlagTimeout     = "timeout"
	FlagPageTimeout = "page-timeout"
	FlagRenderer    = "renderer"
	FlagBrowserURL  = "browser-url"
	FlagBrowserBin  = "browser-bin"
	FlagViewport    = "viewport"
	FlagToken       = "token"
	FlagVerbose     = "verbose"

	// History
	FlagHistory   = "history"
	FlagHistoryDB = "history-db"
	FlagLimit     = "limit"
	FlagRunID     = "run-id"
)
