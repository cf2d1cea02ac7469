package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/snowflakedb/gosnowflake"

	"finrisk/internal/table"
	"finrisk/pkg/models"

	apperrors "finrisk/pkg/errors"
)

// SnowflakeSink replicates each published dataset into a warehouse table.
// Tables are replaced wholesale per run; the datasets are full snapshots,
// not increments.
type SnowflakeSink struct {
	db     *sql.DB
	schema string
}

// Connect opens a Snowflake connection from the run configuration.
func Connect(cfg models.Snowflake) (*SnowflakeSink, error) {
	dsn, err := gosnowflake.DSN(&gosnowflake.Config{
		Account:   cfg.Account,
		User:      cfg.Username,
		Password:  cfg.Password,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Warehouse: cfg.Warehouse,
		Role:      cfg.Role,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSinkConnection, "failed to build snowflake DSN")
	}
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSinkConnection, "failed to open snowflake connection")
	}
	return &SnowflakeSink{db: db, schema: cfg.Schema}, nil
}

// NewSnowflakeSink wraps an existing connection; tests inject a mock here.
func NewSnowflakeSink(db *sql.DB, schema string) *SnowflakeSink {
	return &SnowflakeSink{db: db, schema: schema}
}

// Close releases the connection.
func (s *SnowflakeSink) Close() error { return s.db.Close() }

// Replace recreates the dataset's warehouse table and loads every row inside
// one transaction.
func (s *SnowflakeSink) Replace(ctx context.Context, t *table.Table) error {
	name := quoteIdent(t.Name())
	cols := t.Columns()

	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s VARCHAR", quoteIdent(c))
	}
	createStmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", name, strings.Join(defs, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.SinkError(t.Name(), err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, createStmt); err != nil {
		return apperrors.SinkError(t.Name(), err)
	}

	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	insertStmt := fmt.Sprintf("INSERT INTO %s VALUES %s", name, placeholders)
	stmt, err := tx.PrepareContext(ctx, insertStmt)
	if err != nil {
		return apperrors.SinkError(t.Name(), err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(cols))
	for r := 0; r < t.NumRows(); r++ {
		for c := range cols {
			v := t.At(r, c)
			if v.IsNull() {
				args[c] = nil
			} else {
				args[c] = v.String()
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return apperrors.SinkError(t.Name(), err)
		}
	}
	return tx.Commit()
}

func quoteIdent(s string) string {
	return `"` + strings.ToUpper(strings.ReplaceAll(s, `"`, ``)) + `"`
}
