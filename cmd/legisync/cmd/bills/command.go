// Package bills provides commands to inspect the bill catalog.
package bills

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/legisync/cmd/application"
	"github.com/agentstation/legisync/internal/cmd/output"
	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/logging"
)

// NewCommand creates the bills command with app dependencies.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bills",
		GroupID: "core",
		Short:   "Inspect imported bills",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newListCommand(app))
	return cmd
}

func newListCommand(app application.Application) *cobra.Command {
	var number string
	cmd := &cobra.Command{
		Use:     "list [PARLIAMENT-SESSION]",
		Aliases: []string{"ls"},
		Short:   "List bills, optionally only those of one session",
		Example: `  legisync bills list
  legisync bills list 41-1 -o wide
  legisync bills list 41-1 --number C-10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sessionID string
			if len(args) == 1 {
				sessionID = args[0]
				if _, _, err := catalogs.ParseSessionID(sessionID); err != nil {
					return err
				}
			}
			if number != "" && sessionID == "" {
				return errors.NewValidationError("number", number, "a session is required")
			}

			store, err := app.Store()
			if err != nil {
				return err
			}
			ctx := logging.WithLogger(cmd.Context(), app.Logger())

			var bills []*catalogs.Bill
			err = store.InTx(ctx, func(ctx context.Context, tx catalogs.Tx) error {
				if number != "" {
					bills, err = tx.BillsInSession(ctx, number, sessionID)
				} else {
					bills, err = tx.ListBills(ctx, sessionID)
				}
				return err
			})
			if err != nil {
				return err
			}

			app.Logger().Debug().Int("bills", len(bills)).Msg("Listed bills")
			format := output.DetectFormat(app.OutputFormat())
			return output.Render(cmd.OutOrStdout(), format, output.BillsTable(bills, format == output.FormatWide), bills)
		},
	}
	cmd.Flags().StringVar(&number, "number", "", "only bills with this number, e.g. C-10 (requires a session)")
	return cmd
}
