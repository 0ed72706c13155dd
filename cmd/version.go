package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/rowpick/pkg/settings"
)

var readBuildInfo = debug.ReadBuildInfo

// cliVersionString builds a human-readable version string for CLI output and Cobra's --version flag.
func cliVersionString() string {
	version := settings.VersionInformation.BuildVersion
	commit := settings.VersionInformation.Commit
	if info, ok := readBuildInfo(); ok {
		// Module installs carry a real version when ldflags were not set.
		if version == "" || strings.HasSuffix(version, "-nightly") {
			if v := info.Main.Version; v != "" && v != "(devel)" {
				version = v
			}
		}
		if commit == "" || commit == "unknown" {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" && s.Value != "" {
					commit = s.Value
				}
			}
		}
	}
	return fmt.Sprintf("%s %s (commit %s, go %s)", settings.CliBinaryName, version, commit, runtime.Version())
}

// helpAbout renders the about text of the embedded default config.
func helpAbout() string {
	cfg, err := cfgLoader.loadMergedConfig("")
	if err != nil || cfg.App.About == "" {
		return "Pick rows from delimited text, JSON, YAML, TOML or NDJSON."
	}
	return cfg.App.About
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print rowpick version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), cliVersionString())
			return err
		},
	}
}

// newConfigCmd prints the merged configuration. current returns the config
// loaded by the root command's pre-run.
func newConfigCmd(current func() Config) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(current()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
