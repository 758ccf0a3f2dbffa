// Package cli is the depgrapher command line: flag handling, logging setup,
// terminal summary and the interactive browser.
package cli

import (
	"context"
	"depgrapher/internal/core/config"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const versionString = "1.0.0"

type options struct {
	files         []string
	name          string
	version       string
	source        string
	format        string
	output        string
	configPath    string
	offline       bool
	quiet         bool
	verbose       bool
	ui            bool
	watch         bool
	trace         bool
	impact        string
	history       bool
	since         string
	historyWindow string
	historyTSV    string
	historyJSON   string
	args          []string

	changed func(name string) bool
	stdout  io.Writer
	stderr  io.Writer
}

// Run executes the command line and returns the process exit code.
func Run(ctx context.Context, args []string) int {
	return execute(ctx, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &options{stdout: stdout, stderr: stderr}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("error:"), err.Error())
		return 1
	}
	return 0
}

func newRootCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "depgrapher",
		Short: "Map the transitive dependencies of a compiled module",
		Long: titleStyle.Render("depgrapher") + subtitleStyle.Render(" - transitive dependency graphs for compiled modules") + `

Starting from module files or a name and version fetched from a package
registry, depgrapher collects every referenced module, reports version and
target platform conflicts as well as modules that depend on another version
of themselves, and writes a diagram or table of the graph.

` + subtitleStyle.Render("Examples:") + `
  depgrapher -f ./bin/App.nuspec
  depgrapher -n Contoso.Core -v 2.1.0 --format csv-referencers -o ./out
  depgrapher -f App.nuspec --trace App@1.0.0 Newtonsoft.Json@13.0.1
  depgrapher -f App.nuspec --watch --ui`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.trace {
				if len(args) != 2 {
					return fmt.Errorf("--trace requires two modules: <name>@<version> <name>@<version>")
				}
				return nil
			}
			return cobra.NoArgs(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.args = args
			opts.changed = cmd.Flags().Changed
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.files, "file", "f", nil, "root module file (.nuspec, .nupkg, .module.toml); repeatable")
	f.StringVarP(&opts.name, "name", "n", "", "root module name to fetch from the registry")
	f.StringVarP(&opts.version, "version", "v", "", "root module version, used with --name")
	f.StringVarP(&opts.source, "source", "s", "", "package registry source (default from config, nuget.org)")
	f.StringVar(&opts.format, "format", "", "output format: plantuml, csv-referencers, csv-references, circular, overview")
	f.StringVarP(&opts.output, "output", "o", "", "output directory")
	f.StringVar(&opts.configPath, "config", "", "config file (default ./"+config.DefaultFile+" when present)")
	f.BoolVar(&opts.offline, "offline", false, "never invoke the package manager")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "only log warnings and errors")
	f.BoolVar(&opts.verbose, "verbose", false, "log debug details")
	f.BoolVar(&opts.ui, "ui", false, "browse conflicts and modules in a terminal UI")
	f.BoolVar(&opts.watch, "watch", false, "re-run when root artifacts or the config file change")
	f.BoolVar(&opts.trace, "trace", false, "print the shortest dependency chain between two modules")
	f.StringVar(&opts.impact, "impact", "", "list every module affected by a change to the named module")
	f.BoolVar(&opts.history, "history", false, "record the run and print the stored trend for these roots")
	f.StringVar(&opts.since, "since", "", "only include runs at or after this time (RFC3339 or YYYY-MM-DD)")
	f.StringVar(&opts.historyWindow, "history-window", "24h", "moving-average window for trend summaries")
	f.StringVar(&opts.historyTSV, "history-tsv", "", "write the trend report as TSV to this path")
	f.StringVar(&opts.historyJSON, "history-json", "", "write the trend report as JSON to this path")
	cmd.MarkFlagsMutuallyExclusive("quiet", "verbose")
	cmd.MarkFlagsMutuallyExclusive("trace", "impact")

	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the depgrapher version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "depgrapher v%s\n", versionString)
		},
	}
}
