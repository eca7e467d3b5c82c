package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

type buildInfo struct {
	version string
	commit  string
	date    string
}

var build = buildInfo{version: "dev", commit: "unknown", date: "unknown"}

func (b buildInfo) String() string {
	return fmt.Sprintf("%s (%s) %s", b.version, b.commit, b.date)
}

// SetBuildInfo records the values injected at link time. Empty values keep
// the defaults.
func SetBuildInfo(version, commit, date string) {
	if version != "" {
		build.version = version
	}
	if commit != "" {
		build.commit = commit
	}
	if date != "" {
		build.date = date
	}
	rootCmd.Version = build.String()
	rootCmd.SetVersionTemplate("sitecheck {{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return build.version, build.commit, build.date
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "sitecheck %s\n", build.version)
		fmt.Fprintf(w, "commit: %s\n", build.commit)
		fmt.Fprintf(w, "built:  %s\n", build.date)
		fmt.Fprintf(w, "go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
