package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
	"github.com/spf13/cobra"
)

func newBackfillCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Move relation values stored under field keys to field ids",
		Long: `Rewrites every submission whose relation fields are still stored under the
field key so the value lives under the field id, normalizing {id} objects to
plain ids. Running it twice changes nothing the second time.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd, func(_ formview.Store, manager formview.Manager) error {
				report, err := manager.BackfillReferences(cmd.Context(), dryRun)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	return cmd
}

func newMigrateKeyCmd() *cobra.Command {
	var formID, oldKey, newKey string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate-key",
		Short: "Move values of a renamed field from its old key to its id",
		Example: `  formview migrate-key --form <id> --old-key project --new-key parent_project --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(formID)
			if err != nil {
				return fmt.Errorf("invalid --form %q: %w", formID, err)
			}
			return withManager(cmd, func(_ formview.Store, manager formview.Manager) error {
				report, err := manager.MigrateFieldKey(cmd.Context(), id, oldKey, newKey, dryRun)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formID, "form", "", "id of the form whose field was renamed")
	flags.StringVar(&oldKey, "old-key", "", "key the values are stored under")
	flags.StringVar(&newKey, "new-key", "", "key the field carries now")
	flags.BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	for _, name := range []string{"form", "old-key", "new-key"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
