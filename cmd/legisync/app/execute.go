package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/legisync/internal/cmd/output"
)

// flags holds the root command's persistent flags. They are kept apart
// from Config so that unset flags do not erase configured values.
type flags struct {
	configFile string
	verbose    bool
	quiet      bool
	noColor    bool
	output     string
	logLevel   string
	driver     string
	dsn        string
}

// Execute runs the legisync CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	f := &flags{}
	rootCmd := &cobra.Command{
		Use:     "legisync",
		Short:   "LEGISinfo bill importer",
		Version: a.version,
		Long: `legisync imports bills from the LEGISinfo XML feed into a bill catalog.

Every import reconciles the feed against the catalog in one transaction:
new bills are created, bills re-introduced from the previous session are
merged into their earlier record, and changed bills are updated.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupCommand(cmd, f)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "management", Title: "Management Commands:"})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configFile, "config", "", "config file (default is $HOME/.legisync.yaml)")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	pf.BoolVarP(&f.quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	pf.BoolVar(&f.noColor, "no-color", false, "disable colored output")
	pf.StringVarP(&f.output, "output", "o", "", "output format: table, json, yaml, wide")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	pf.StringVar(&f.driver, "driver", "", "catalog database driver: sqlite3, pgx")
	pf.StringVar(&f.dsn, "dsn", "", "catalog database DSN or SQLite path")

	rootCmd.SetVersionTemplate("legisync {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, f *flags) error {
	if f.configFile != "" {
		config, err := LoadConfigFile(f.configFile)
		if err != nil {
			return err
		}
		a.config = config
	}

	if _, err := output.ParseFormat(f.output); err != nil {
		return err
	}
	a.config.UpdateFromFlags(f.verbose, f.quiet, f.noColor, f.output, f.logLevel)
	if cmd.Flags().Changed("driver") {
		a.config.DatabaseDriver = f.driver
	}
	if cmd.Flags().Changed("dsn") {
		a.config.DatabaseDSN = f.dsn
	}

	logger := NewLogger(a.config)
	a.logger = &logger
	return nil
}

// ExitOnError prints an error and exits with status 1.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
