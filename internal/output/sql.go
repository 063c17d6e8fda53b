// internal/output/sql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/jungyu/DataScout-sub003/internal/extract"
)

var sqlIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// sqlDialect captures the syntax differences between the supported
// databases.
type sqlDialect struct {
	name        string
	quote       string
	placeholder func(i int) string
	textType    string
}

var (
	dialectSQLite = sqlDialect{
		name:        "sqlite",
		quote:       `"`,
		placeholder: func(i int) string { return "?" },
		textType:    "TEXT",
	}
	dialectPostgres = sqlDialect{
		name:        "postgresql",
		quote:       `"`,
		placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
		textType:    "TEXT",
	}
	dialectMySQL = sqlDialect{
		name:        "mysql",
		quote:       "`",
		placeholder: func(i int) string { return "?" },
		textType:    "TEXT",
	}
)

// sqlWriter is the shared core of the three SQL-backed writers. Records
// are stored as text columns; composite values are serialized as JSON.
type sqlWriter struct {
	db        *sql.DB
	dialect   sqlDialect
	table     string
	batchSize int
}

func newSQLWriter(driver string, dsn string, dialect sqlDialect, config Config) (*sqlWriter, error) {
	table := config.Table
	if table == "" {
		table = "records"
	}
	if !sqlIdentifierRegex.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.name, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.name, err)
	}

	return &sqlWriter{db: db, dialect: dialect, table: table, batchSize: batchSize}, nil
}

func (w *sqlWriter) Write(ctx context.Context, records []extract.Record) error {
	if len(records) == 0 {
		return nil
	}
	columns := columnsOf(records)
	for _, col := range columns {
		if !sqlIdentifierRegex.MatchString(col) {
			return fmt.Errorf("invalid column name: %q", col)
		}
	}

	if err := w.createTable(ctx, columns); err != nil {
		return err
	}

	for start := 0; start < len(records); start += w.batchSize {
		end := start + w.batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := w.insertBatch(ctx, columns, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (w *sqlWriter) createTable(ctx context.Context, columns []string) error {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%s %s", w.quoteIdent(col), w.dialect.textType)
	}
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		w.quoteIdent(w.table), strings.Join(defs, ", "))
	if _, err := w.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", w.table, err)
	}
	return nil
}

func (w *sqlWriter) insertBatch(ctx context.Context, columns []string, records []extract.Record) error {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = w.quoteIdent(col)
		placeholders[i] = w.dialect.placeholder(i + 1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		w.quoteIdent(w.table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		flat := flatten(rec)
		args := make([]interface{}, len(columns))
		for i, col := range columns {
			if flat[col] == nil {
				args[i] = nil
				continue
			}
			args[i] = cellString(flat[col])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert into %s: %w", w.table, err)
		}
	}
	return tx.Commit()
}

func (w *sqlWriter) quoteIdent(name string) string {
	return w.dialect.quote + name + w.dialect.quote
}

func (w *sqlWriter) Close() error {
	if w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.db = nil
	return err
}
