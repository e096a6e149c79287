package main

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/internal/export"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newViewCmd() *cobra.Command {
	var viewID, format, out string
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Materialize a saved view",
		Example: `  # Print a view from a local snapshot as CSV
  formview view --source project.yaml --view 9d5e2c44-1f7b-4b6b-8b53-0c2a1e7f0001 --format csv

  # Write a view from a DuckDB file to a spreadsheet
  formview view --source duckdb:forms.duckdb --view <id> --format xlsx --out tasks.xlsx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(viewID)
			if err != nil {
				return fmt.Errorf("invalid --view %q: %w", viewID, err)
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return withManager(cmd, func(store formview.Store, manager formview.Manager) error {
				return runView(cmd, store, manager, id, f, out)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&viewID, "view", "", "id of the view to materialize")
	flags.StringVar(&format, "format", string(export.FormatJSON), "output format: json, csv or xlsx")
	flags.StringVar(&out, "out", "", "write to this file instead of stdout")
	_ = cmd.MarkFlagRequired("view")
	return cmd
}

func runView(cmd *cobra.Command, store formview.Store, manager formview.Manager, viewID uuid.UUID, format export.Format, out string) error {
	ctx := cmd.Context()
	view, err := store.GetView(ctx, viewID)
	if err != nil {
		return err
	}
	rows, err := manager.MaterializeView(ctx, view.Config)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if out != "" {
		file, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer file.Close()
		w = file
	}
	if err := export.Write(w, format, view.Config, rows); err != nil {
		return err
	}
	zap.S().Infow("view materialized", "viewID", viewID, "rows", len(rows), "format", format)
	return nil
}
