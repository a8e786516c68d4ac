package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/legisync/cmd/legisync/cmd/bills"
	"github.com/agentstation/legisync/cmd/legisync/cmd/imports"
	"github.com/agentstation/legisync/cmd/legisync/cmd/migrate"
	"github.com/agentstation/legisync/cmd/legisync/cmd/seed"
	"github.com/agentstation/legisync/cmd/legisync/cmd/sessions"
	"github.com/agentstation/legisync/cmd/legisync/cmd/watch"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(imports.NewCommand(a))
	rootCmd.AddCommand(watch.NewCommand(a))
	rootCmd.AddCommand(bills.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(sessions.NewCommand(a))
	rootCmd.AddCommand(seed.NewCommand(a))
	rootCmd.AddCommand(migrate.NewCommand(a))

	rootCmd.AddCommand(a.newVersionCommand())
}

// newVersionCommand creates the version command.
func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("legisync %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
