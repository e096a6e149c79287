package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
	"github.com/spf13/cobra"
)

// errRejected is returned after a rejected payload's errors were printed.
var errRejected = errors.New("submission rejected")

func newValidateCmd() *cobra.Command {
	var formID, dataPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Normalize and validate a submission payload without storing it",
		Long: `Reads a JSON object of field values and runs reference normalization and
required-field checks against the form's schema. The normalized payload is
printed on success; the per-field errors are printed otherwise.`,
		Example: `  formview validate --source project.yaml --form <id> --data payload.json
  cat payload.json | formview validate --form <id> --data -`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(formID)
			if err != nil {
				return fmt.Errorf("invalid --form %q: %w", formID, err)
			}
			data, err := readPayload(cmd, dataPath)
			if err != nil {
				return err
			}
			return withManager(cmd, func(_ formview.Store, manager formview.Manager) error {
				return runValidate(cmd, manager, id, data)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formID, "form", "", "id of the form the payload belongs to")
	flags.StringVar(&dataPath, "data", "-", "JSON payload file, or - for stdin")
	_ = cmd.MarkFlagRequired("form")
	return cmd
}

func readPayload(cmd *cobra.Command, path string) (map[string]any, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, formview.NewError(formview.ErrorTypeValidation, formview.ErrCodeInvalidJSON, "payload is not a JSON object").WithCause(err)
	}
	return data, nil
}

func runValidate(cmd *cobra.Command, manager formview.Manager, formID uuid.UUID, data map[string]any) error {
	normalized, err := manager.PrepareSubmission(cmd.Context(), formID, data)
	if ve, ok := formview.AsValidationError(err); ok {
		if err := printJSON(cmd.OutOrStdout(), ve); err != nil {
			return err
		}
		return errRejected
	}
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{"data": normalized})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
