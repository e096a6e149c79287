package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/factory"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the form, submission and view tables in Postgres",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := fromCommand(cmd)
			if err != nil {
				return err
			}
			if cc.source != factory.SourcePostgres {
				return formview.NewConfigurationError(formview.ErrCodeUnsupportedSource,
					fmt.Sprintf("init-db needs a postgres source, got %q", cc.source))
			}
			if err := initDatabase(cmd.Context(), cc.config.Database); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database initialized successfully.")
			return nil
		},
	}
}

func initDatabase(ctx context.Context, cfg formview.DatabaseConfig) error {
	pool, err := factory.NewPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return withTx(ctx, conn, func(tx pgx.Tx) error {
		for _, stmt := range tableStatements(cfg.TableNames) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("ensure tables: %w", err)
			}
		}
		zap.S().Infow("tables ready",
			"forms", cfg.TableNames.Forms,
			"submissions", cfg.TableNames.Submissions,
			"views", cfg.TableNames.Views,
		)
		return nil
	})
}

func tableStatements(names formview.TableNames) []string {
	forms := quoteIdentifier(names.Forms)
	submissions := quoteIdentifier(names.Submissions)
	views := quoteIdentifier(names.Views)

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id          UUID PRIMARY KEY,
		project_id  UUID NOT NULL,
		title       TEXT NOT NULL,
		description TEXT,
		slug        TEXT,
		schema_     JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, forms),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id         UUID PRIMARY KEY,
		form_id    UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
		data       JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, submissions, forms),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (form_id, created_at, id)`,
			quoteIdentifier(makeIndexName(names.Submissions, "form_created")), submissions),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id          UUID PRIMARY KEY,
		project_id  UUID NOT NULL,
		title       TEXT NOT NULL,
		description TEXT,
		config      JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, views),
	}
}

func withTx(ctx context.Context, conn *pgxpool.Conn, fn func(pgx.Tx) error) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w; rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func quoteIdentifier(name string) string {
	return pgx.Identifier(splitIdentifier(name)).Sanitize()
}

func splitIdentifier(name string) []string {
	parts := strings.Split(name, ".")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return []string{name}
	}
	return result
}

// makeIndexName flattens a qualified table name into an index name.
func makeIndexName(table string, suffix string) string {
	base := strings.ReplaceAll(table, ".", "_")
	base = strings.ReplaceAll(base, `"`, "")
	return fmt.Sprintf("%s_%s_idx", base, suffix)
}
