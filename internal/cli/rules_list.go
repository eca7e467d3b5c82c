package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sitecheck/internal/rules"
	"sitecheck/internal/site"
)

var (
	rulesListQuiet    bool
	rulesListCategory string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Browse the rule catalog",
	Long: `Browse the rules sitecheck can evaluate.

A rule runs on a route only when the route's assertion group lists it
(see "sitecheck routes"). Thresholds are rule options and can be changed
per run with --set or in the profile's options section.

Examples:
  sitecheck rules list
  sitecheck rules list --category visual-policy
  sitecheck rules show readable-width
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available rules",
	Long: `List every rule registered in this build, sorted by rule ID.

Output:
  A vertical list of rules:
    ----------------------------------------
    RULE: {ID}
    ----------------------------------------
    {TITLE}
    Category: {CATEGORY}
    {DESCRIPTION}

  With -q, one rule ID per line.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		selected, err := rulesInCategory(rulesListCategory)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, r := range selected {
			if rulesListQuiet {
				fmt.Fprintln(w, r.ID())
				continue
			}
			printRule(w, r)
		}
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show <rule-id>",
	Short: "Show one rule, its options and the routes it runs on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, ok := rules.Lookup(args[0])
		if !ok {
			return fmt.Errorf("rule not found: %s (see \"sitecheck rules list -q\")", args[0])
		}
		w := cmd.OutOrStdout()
		printRule(w, r)
		if paths := routesUsing(site.Default(), r.ID()); len(paths) > 0 {
			fmt.Fprintf(w, "Reference routes: %s\n\n", strings.Join(paths, ", "))
		}
		return nil
	},
}

func rulesInCategory(category string) ([]rules.Rule, error) {
	all := rules.List()
	category = strings.TrimSpace(category)
	if category == "" {
		return all, nil
	}
	var out []rules.Rule
	for _, r := range all {
		if string(r.Category()) == category {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no rules in category %q", category)
	}
	return out, nil
}

func routesUsing(p *site.Profile, ruleID string) []string {
	var paths []string
	for _, route := range p.SortedRoutes() {
		if route.HasCheck(ruleID) {
			paths = append(paths, route.Path)
		}
	}
	return paths
}

func printRule(w io.Writer, r rules.Rule) {
	const rule = "----------------------------------------"
	fmt.Fprintln(w, rule)
	color.New(color.Bold).Fprintf(w, "RULE: %s\n", r.ID())
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, r.Title())
	fmt.Fprintf(w, "Category: %s\n", r.Category())
	fmt.Fprintln(w, r.Description())

	cr, ok := r.(rules.ConfigurableRule)
	if !ok || len(cr.Options()) == 0 {
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	for _, opt := range cr.Options() {
		def := opt.Default
		if def == "" {
			def = `""`
		}
		fmt.Fprintf(w, "  %s\n", opt.Name)
		fmt.Fprintf(w, "    Description: %s\n", opt.Description)
		fmt.Fprintf(w, "    Default:     %s\n", def)
	}
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesShowCmd)
	rulesListCmd.Flags().BoolVarP(&rulesListQuiet, "quiet", "q", false, "Only print rule IDs")
	rulesListCmd.Flags().StringVar(&rulesListCategory, "category", "", "Only list rules in this category (availability, structural, content-policy, visual-policy, link-integrity)")
}
