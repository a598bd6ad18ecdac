package output

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hqdash/runtime/internal/database"
	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/pkg/dataset"
)

// DefaultSQLiteTable is the table companies are written to.
const DefaultSQLiteTable = "companies"

// SQLiteConfig holds configuration for the SQLite output module.
type SQLiteConfig struct {
	// Path is the database file
	Path string `json:"path"`
	// Table is the destination table (DefaultSQLiteTable when empty)
	Table string `json:"table"`
	// Append keeps rows from earlier runs instead of replacing them
	Append bool `json:"append"`
}

// SQLiteOutput writes the filtered companies to a SQLite table in one transaction.
// Each row carries the run ID so appended runs can be told apart.
type SQLiteOutput struct {
	config SQLiteConfig
	db     *sql.DB
}

// NewSQLiteFromConfig creates a SQLite output module from configuration.
// The database is opened on first Write.
func NewSQLiteFromConfig(cfg map[string]interface{}) (*SQLiteOutput, error) {
	path, err := pathFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	config := SQLiteConfig{Path: path, Table: DefaultSQLiteTable}
	if v, ok := cfg["table"].(string); ok && v != "" {
		config.Table = v
	}
	if err := database.ValidateIdentifier(config.Table); err != nil {
		return nil, fmt.Errorf("field 'table': %w", err)
	}
	if v, ok := cfg["append"].(bool); ok {
		config.Append = v
	}
	return &SQLiteOutput{config: config}, nil
}

// sqlType maps a column to its SQLite storage class.
func sqlType(col dataset.Column) string {
	switch col {
	case dataset.ColRank, dataset.ColEmployees:
		return "INTEGER"
	case dataset.ColLatitude, dataset.ColLongitude:
		return "REAL"
	case dataset.ColRevenues, dataset.ColProfit, dataset.ColCosts:
		// Stored as decimal text to stay exact.
		return "TEXT"
	default:
		return "TEXT"
	}
}

func (o *SQLiteOutput) createStatement() string {
	defs := []string{"run_id TEXT NOT NULL"}
	for _, col := range dataset.AllColumns {
		defs = append(defs, fmt.Sprintf("%s %s", strings.ToLower(string(col)), sqlType(col)))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", o.config.Table, strings.Join(defs, ", "))
}

func (o *SQLiteOutput) insertStatement() string {
	names := []string{"run_id"}
	for _, col := range dataset.AllColumns {
		names = append(names, strings.ToLower(string(col)))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		o.config.Table, strings.Join(names, ", "), database.Placeholders(len(names)))
}

// Write implements Module.
func (o *SQLiteOutput) Write(ctx context.Context, report *dataset.Report) (int, error) {
	if report == nil {
		return 0, ErrNilReport
	}
	start := time.Now()

	if o.db == nil {
		db, err := database.Open(ctx, o.config.Path)
		if err != nil {
			return 0, err
		}
		o.db = db
	}

	rows := companies(report)
	written, err := o.writeRows(ctx, report.RunID, rows)
	if err != nil {
		logger.Error("sqlite output write failed",
			slog.String("module_type", "sqlite"),
			slog.String("table", o.config.Table),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return 0, err
	}

	logger.Info("sqlite output written",
		slog.String("module_type", "sqlite"),
		slog.String("path", o.config.Path),
		slog.String("table", o.config.Table),
		slog.Int("record_count", written),
		slog.Bool("append", o.config.Append),
		slog.Duration("duration", time.Since(start)),
	)
	return written, nil
}

func (o *SQLiteOutput) writeRows(ctx context.Context, runID string, rows []dataset.Company) (int, error) {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, database.NewTransactionError("beginning transaction", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	create := o.createStatement()
	if _, err := tx.ExecContext(ctx, create); err != nil {
		_ = tx.Rollback()
		return 0, database.ClassifyDatabaseError(err, "create", create)
	}
	if !o.config.Append {
		del := "DELETE FROM " + o.config.Table
		if _, err := tx.ExecContext(ctx, del); err != nil {
			_ = tx.Rollback()
			return 0, database.ClassifyDatabaseError(err, "delete", del)
		}
	}

	insert := o.insertStatement()
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		_ = tx.Rollback()
		return 0, database.ClassifyDatabaseError(err, "prepare", insert)
	}
	defer stmt.Close()

	args := make([]interface{}, len(dataset.AllColumns)+1)
	args[0] = runID
	for i, c := range rows {
		for j, col := range dataset.AllColumns {
			args[j+1] = sqlValue(c, col)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("row %d: %w", i, database.ClassifyDatabaseError(err, "insert", insert))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, database.NewTransactionError("committing transaction", err)
	}
	return len(rows), nil
}

// sqlValue converts a cell for database/sql. Decimals are written as text.
func sqlValue(c dataset.Company, col dataset.Column) interface{} {
	v := cellValue(c, col)
	if v == nil {
		return nil
	}
	switch col {
	case dataset.ColRevenues, dataset.ColProfit, dataset.ColCosts:
		return cellString(c, col)
	}
	return v
}

// Close releases the database connection.
func (o *SQLiteOutput) Close() error {
	if o.db != nil {
		err := o.db.Close()
		o.db = nil
		return err
	}
	return nil
}
