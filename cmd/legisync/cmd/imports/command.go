// Package imports provides the import command.
package imports

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/legisync"
	"github.com/agentstation/legisync/cmd/application"
	"github.com/agentstation/legisync/internal/cmd/output"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/logging"
	"github.com/agentstation/legisync/pkg/reconciler"
)

// Flags holds the flags shared by the import subcommands.
type Flags struct {
	DryRun  bool
	Timeout time.Duration
}

func addFlags(cmd *cobra.Command) *Flags {
	f := &Flags{}
	cmd.Flags().BoolVar(&f.DryRun, "dry-run", false, "reconcile without committing anything")
	cmd.Flags().DurationVar(&f.Timeout, "timeout", 0, "abort the import after this long (0 for no limit)")
	return f
}

func (f *Flags) options() []legisync.ImportOption {
	return []legisync.ImportOption{
		legisync.WithDryRun(f.DryRun),
		legisync.WithTimeout(f.Timeout),
	}
}

// NewCommand creates the import command with app dependencies.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "import",
		GroupID: "core",
		Short:   "Import bills from the LEGISinfo feed",
		Long: `Import reconciles feed records with the bill catalog.

Each import runs in a single transaction under a per-session lock; any
error rolls back everything the import wrote.`,
		Example: `  legisync import session            # Import the current session
  legisync import session 41-1       # Import a specific session
  legisync import session --dry-run  # Show what would change
  legisync import bill 5123456       # Import one bill by legisinfo id`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newSessionCommand(app))
	cmd.AddCommand(newBillCommand(app))
	return cmd
}

func newSessionCommand(app application.Application) *cobra.Command {
	var flags *Flags
	cmd := &cobra.Command{
		Use:   "session [PARLIAMENT-SESSION]",
		Short: "Import every bill of a session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			ctx := logging.WithLogger(cmd.Context(), app.Logger())

			var summary *reconciler.Summary
			if len(args) == 1 {
				summary, err = client.ImportSession(ctx, args[0], flags.options()...)
			} else {
				summary, err = client.ImportCurrent(ctx, flags.options()...)
			}
			if err != nil {
				return err
			}

			logger := app.Logger()
			for _, issue := range summary.Issues {
				logger.Warn().Str("bill", issue.Number).Int64("bill_id", issue.BillID).
					Int64("candidate_id", issue.CandidateID).Msg("Bill needs manual merge")
			}
			if flags.DryRun {
				logger.Info().Msg("Dry run: nothing was committed")
			}

			format := output.DetectFormat(app.OutputFormat())
			return output.Render(cmd.OutOrStdout(), format, output.SummaryTable(summary), summary)
		},
	}
	flags = addFlags(cmd)
	return cmd
}

func newBillCommand(app application.Application) *cobra.Command {
	var flags *Flags
	cmd := &cobra.Command{
		Use:   "bill LEGISINFO-ID",
		Short: "Import a single bill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return errors.NewValidationError("legisinfo-id", args[0], "must be a positive integer")
			}

			client, err := app.Client()
			if err != nil {
				return err
			}
			ctx := logging.WithLogger(cmd.Context(), app.Logger())

			res, err := client.ImportBill(ctx, id, flags.options()...)
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			return output.Render(cmd.OutOrStdout(), format, output.ResultTable(res), res)
		},
	}
	flags = addFlags(cmd)
	return cmd
}
