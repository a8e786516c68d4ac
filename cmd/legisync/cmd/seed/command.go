// Package seed provides the seed command, which loads the reference data
// imports depend on.
package seed

import (
	"context"
	"strconv"

	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/agentstation/legisync/cmd/application"
	"github.com/agentstation/legisync/internal/cmd/output"
	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/logging"
)

// Result reports what a seed file loaded.
type Result struct {
	File        string `json:"file" yaml:"file"`
	Sessions    int    `json:"sessions" yaml:"sessions"`
	Politicians int    `json:"politicians" yaml:"politicians"`
	Members     int    `json:"members" yaml:"members"`
}

// NewCommand creates the seed command with app dependencies.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "seed FILE.yaml",
		GroupID: "management",
		Short:   "Load reference data from a YAML file",
		Long: `Seed writes reference data to the catalog in one transaction. Imports
need the sessions to exist, and sponsors are only resolved for politicians
the catalog knows.

  sessions:
    - parliamentnum: 41
      sessnum: 1
      name: 41st Parliament, 1st Session
      start: "2011-06-02"
  politicians:
    - id: 1
      name: Rob Nicholson
      parl_id: 105
  members:
    - politician_id: 1
      party: Conservative
      riding: Niagara Falls
      start: "2008-10-14"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := catalogs.LoadSeedFile(args[0])
			if err != nil {
				return err
			}

			store, err := app.Store()
			if err != nil {
				return err
			}
			ctx := logging.WithLogger(cmd.Context(), app.Logger())
			if err := store.InTx(ctx, func(ctx context.Context, tx catalogs.Tx) error {
				return seed.Apply(ctx, tx)
			}); err != nil {
				return err
			}

			res := Result{
				File:        args[0],
				Sessions:    len(seed.Sessions),
				Politicians: len(seed.Politicians),
				Members:     len(seed.Members),
			}
			app.Logger().Info().Str("file", res.File).Msg("Seed applied")

			table := output.Data{
				Headers: []string{"Kind", "Loaded"},
				Align:   []tw.Align{tw.AlignLeft, tw.AlignRight},
				Rows: [][]string{
					{"Sessions", strconv.Itoa(res.Sessions)},
					{"Politicians", strconv.Itoa(res.Politicians)},
					{"Members", strconv.Itoa(res.Members)},
				},
			}
			return output.Render(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), table, res)
		},
	}
}
