// Package sessions provides commands for the sessions bills are filed under.
package sessions

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/agentstation/legisync/cmd/application"
	"github.com/agentstation/legisync/internal/cmd/output"
	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/logging"
)

// NewCommand creates the sessions command with app dependencies.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		GroupID: "management",
		Short:   "List and add legislative sessions",
		Example: `  legisync sessions list
  legisync sessions add 41-1 --start 2011-06-02 --name "41st Parliament, 1st Session"
  legisync sessions add 40-3 --start 2010-03-03 --end 2011-03-26`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newListCommand(app))
	cmd.AddCommand(newAddCommand(app))
	return cmd
}

func newListCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions by start date",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.Store()
			if err != nil {
				return err
			}
			ctx := logging.WithLogger(cmd.Context(), app.Logger())

			var sessions []*catalogs.Session
			err = store.InTx(ctx, func(ctx context.Context, tx catalogs.Tx) error {
				sessions, err = tx.Sessions(ctx)
				return err
			})
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			return output.Render(cmd.OutOrStdout(), format, output.SessionsTable(sessions), sessions)
		},
	}
}

func newAddCommand(app application.Application) *cobra.Command {
	var name, start, end string
	cmd := &cobra.Command{
		Use:   "add PARLIAMENT-SESSION",
		Short: "Add or update a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newSession(args[0], name, start, end)
			if err != nil {
				return err
			}

			store, err := app.Store()
			if err != nil {
				return err
			}
			ctx := logging.WithLogger(cmd.Context(), app.Logger())
			if err := store.InTx(ctx, func(ctx context.Context, tx catalogs.Tx) error {
				return tx.SaveSession(ctx, session)
			}); err != nil {
				return err
			}

			app.Logger().Info().Str("session", session.ID).Msg("Session saved")
			format := output.DetectFormat(app.OutputFormat())
			return output.Render(cmd.OutOrStdout(), format, output.SessionsTable([]*catalogs.Session{session}), session)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&start, "start", "", "first sitting day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "prorogation or dissolution day (YYYY-MM-DD); empty while sitting")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

// newSession builds a session from command arguments.
func newSession(id, name, start, end string) (*catalogs.Session, error) {
	parliament, number, err := catalogs.ParseSessionID(id)
	if err != nil {
		return nil, err
	}
	session := &catalogs.Session{
		ID:               catalogs.SessionID(parliament, number),
		Name:             name,
		ParliamentNumber: parliament,
		SessionNumber:    number,
	}
	if session.Start, err = civil.ParseDate(start); err != nil {
		return nil, errors.NewParseError("date", start, "invalid start date", err)
	}
	if end != "" {
		d, err := civil.ParseDate(end)
		if err != nil {
			return nil, errors.NewParseError("date", end, "invalid end date", err)
		}
		if d.Before(session.Start) {
			return nil, errors.NewValidationError("end", end, "session cannot end before it starts")
		}
		session.End = &d
	}
	return session, nil
}
