// Package migrate provides the migrate command.
package migrate

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentstation/legisync/cmd/application"
	"github.com/agentstation/legisync/internal/catalogs/sqlstore"
	"github.com/agentstation/legisync/internal/cmd/output"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/logging"
)

// Migrator is a store with a versioned schema.
type Migrator interface {
	Migrate(ctx context.Context) error
	MigrationStatus(ctx context.Context) (*sqlstore.MigrationStatus, error)
}

// NewCommand creates the migrate command with app dependencies.
func NewCommand(app application.Application) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:     "migrate",
		GroupID: "management",
		Short:   "Apply pending catalog schema migrations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.Store()
			if err != nil {
				return err
			}
			m, ok := store.(Migrator)
			if !ok {
				return &errors.ConfigError{Component: "store", Message: "store has no schema to migrate"}
			}
			ctx := logging.WithLogger(cmd.Context(), app.Logger())

			if !statusOnly {
				if err := m.Migrate(ctx); err != nil {
					return err
				}
			}
			status, err := m.MigrationStatus(ctx)
			if err != nil {
				return err
			}

			table := output.Data{
				Headers: []string{"Version", "Dirty"},
				Rows:    [][]string{{strconv.FormatUint(uint64(status.Version), 10), strconv.FormatBool(status.Dirty)}},
			}
			return output.Render(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), table, status)
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "only report the schema version")
	return cmd
}
