package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sitecheck/internal/config"
	"sitecheck/internal/flags"
	"sitecheck/internal/history"
	"sitecheck/internal/rules"
)

type historyOptions struct {
	BaseURL string
	DBPath  string
	Limit   int
	RunID   int64
}

var histOpts historyOptions

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded check runs",
	Long: `List runs recorded with "sitecheck check --history", newest first.

Runs are stored in a local SQLite database, by default under the XDG data
directory.

Examples:
  sitecheck history
  sitecheck history --base-url http://localhost:4321 --limit 5
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyHistoryEnvDefaults(cmd, &histOpts, os.Getenv)
		return runHistory(cmd.Context(), cmd.OutOrStdout(), histOpts)
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare a recorded run with the previous run of the same site",
	Long: `Compare a recorded run with the run before it for the same base URL and
list every (route, rule) pair whose status changed.

Exit codes:
	0 = both runs produced identical results
	1 = the runs differ
	3 = the comparison could not be made (fewer than two runs, unknown run ID)

Examples:
  # Latest run against the one before it
  sitecheck compare --base-url http://localhost:4321

  # A specific run against its predecessor
  sitecheck compare --run-id 12
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		applyHistoryEnvDefaults(cmd, &histOpts, os.Getenv)
		code, err := runCompare(cmd.Context(), cmd.OutOrStdout(), histOpts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(code)
	},
}

func applyHistoryEnvDefaults(cmd *cobra.Command, opts *historyOptions, getenv func(string) string) {
	if cmd == nil || getenv == nil {
		return
	}
	if !cmd.Flags().Changed(flags.FlagBaseURL) {
		if v := getenv(EnvBaseURL); v != "" {
			opts.BaseURL = v
		}
	}
}

// normalizedBaseURL matches the form the engine records runs under.
func normalizedBaseURL(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	c := config.New()
	c.Target.BaseURL = raw
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c.Target.BaseURL, nil
}

func openHistory(ctx context.Context, opts historyOptions) (*history.Store, string, error) {
	if ctx == nil {
		return nil, "", errors.New("context is nil")
	}
	baseURL, err := normalizedBaseURL(opts.BaseURL)
	if err != nil {
		return nil, "", err
	}
	store, err := history.Open(opts.DBPath)
	if err != nil {
		return nil, "", err
	}
	return store, baseURL, nil
}

func runHistory(ctx context.Context, w io.Writer, opts historyOptions) error {
	store, baseURL, err := openHistory(ctx, opts)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, baseURL, opts.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs recorded in %s\n", store.Path())
		return nil
	}

	t := newTable(w, "ID", "STARTED", "BASE URL", "PROFILE", "EXIT", "PASS", "FAIL", "SKIPPED", "ERROR")
	for _, r := range runs {
		row := []string{
			strconv.FormatInt(r.ID, 10), r.StartedAt.Local().Format(time.DateTime), r.BaseURL, r.Profile,
			strconv.Itoa(r.ExitCode), strconv.Itoa(r.Pass), strconv.Itoa(r.Fail), strconv.Itoa(r.Skipped), strconv.Itoa(r.Error),
		}
		if err := t.Append(row); err != nil {
			return err
		}
	}
	return t.Render()
}

// runCompare prints the differences between two runs and returns the exit code.
func runCompare(ctx context.Context, w io.Writer, opts historyOptions) (int, error) {
	store, baseURL, err := openHistory(ctx, opts)
	if err != nil {
		return 3, err
	}
	defer store.Close()

	cmp, err := store.CompareRuns(ctx, baseURL, opts.RunID)
	if err != nil {
		if errors.Is(err, history.ErrNotEnoughRuns) {
			return 3, fmt.Errorf("%w (record runs with \"sitecheck check --history\")", err)
		}
		return 3, err
	}

	fmt.Fprintf(w, "Comparing run %d (%s) with run %d (%s) for %s\n",
		cmp.Older.ID, cmp.Older.StartedAt.Local().Format(time.DateTime),
		cmp.Newer.ID, cmp.Newer.StartedAt.Local().Format(time.DateTime),
		cmp.Newer.BaseURL)

	if cmp.Identical() {
		fmt.Fprintln(w, "Results are identical.")
		return 0, nil
	}

	t := newTable(w, "ROUTE", "RULE", "BEFORE", "AFTER", "MESSAGE")
	for _, c := range cmp.Changes {
		if err := t.Append([]string{c.Route, c.RuleID, statusLabel(c.Before), statusLabel(c.After), c.Message}); err != nil {
			return 3, err
		}
	}
	if err := t.Render(); err != nil {
		return 3, err
	}

	regressions := len(cmp.Regressions())
	summary := fmt.Sprintf("%d changed, %d %s", len(cmp.Changes), regressions, plural(regressions, "regression", "regressions"))
	if regressions > 0 {
		color.New(color.FgRed, color.Bold).Fprintln(w, summary)
	} else {
		fmt.Fprintln(w, summary)
	}
	return 1, nil
}

func statusLabel(s rules.Status) string {
	if s == "" {
		return "-"
	}
	return string(s)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(compareCmd)

	for _, c := range []*cobra.Command{historyCmd, compareCmd} {
		c.Flags().StringVar(&histOpts.BaseURL, flags.FlagBaseURL, "", "Only consider runs of this base URL (default: $"+EnvBaseURL+", else every site)")
		c.Flags().StringVar(&histOpts.DBPath, flags.FlagHistoryDB, "", "History database path (default: "+history.DefaultPath()+")")
	}
	historyCmd.Flags().IntVar(&histOpts.Limit, flags.FlagLimit, 10, "Maximum number of runs to list (0 = all)")
	compareCmd.Flags().Int64Var(&histOpts.RunID, flags.FlagRunID, 0, "Run to compare with its predecessor (default: latest)")
}
