package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sitecheck/internal/flags"
	"sitecheck/internal/site"
)

var routesProfile string

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List declared routes and their assertion groups",
	Long: `List the routes declared by a site profile.

Each line shows the route path, the status it must answer with, its audience
and conversion goal (landing routes only), and the rules in its assertion
group.

Examples:
  sitecheck routes
  sitecheck routes --profile site.yaml
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := site.LoadProfile(routesProfile)
		if err != nil {
			return err
		}
		return printRoutes(cmd.OutOrStdout(), profile)
	},
}

func printRoutes(w io.Writer, p *site.Profile) error {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "Profile %s (%d routes)\n", p.Name, len(p.Routes))
	if p.BaseURL != "" {
		fmt.Fprintf(w, "Base URL: %s\n", p.BaseURL)
	}
	fmt.Fprintln(w)

	t := newTable(w, "PATH", "STATUS", "AUDIENCE", "GOAL", "CHECKS")
	for _, r := range p.SortedRoutes() {
		audience, goal := "-", "-"
		if r.Audience != "" {
			audience = r.Audience
			if g, ok := p.GoalFor(r.Audience); ok {
				goal = string(g)
			}
		}
		row := []string{r.Path, strconv.Itoa(r.ExpectedStatus()), audience, goal, strings.Join(r.Checks, ",")}
		if err := t.Append(row); err != nil {
			return err
		}
	}
	return t.Render()
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.Flags().StringVar(&routesProfile, flags.FlagProfile, "", "YAML site profile (default: built-in reference profile)")
}
