// Package database opens the SQLite files reports are exported to.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	// Pure-Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/internal/pathutil"
)

// DriverSQLite is the database/sql driver name.
const DriverSQLite = "sqlite"

// DefaultBusyTimeout is how long a writer waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Open opens (creating if needed) the SQLite database at path and checks the
// connection. The parent directory is created.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if err := pathutil.ValidateFilePath(path); err != nil {
		return nil, NewConnectionError("invalid database path", err)
	}
	if err := pathutil.EnsureDir(path); err != nil {
		return nil, NewConnectionError("creating database directory", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, DefaultBusyTimeout.Milliseconds())
	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, NewConnectionError("opening database", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, ClassifyDatabaseError(err, "open", "")
	}

	logger.Debug("database opened",
		slog.String("driver", DriverSQLite),
		slog.String("path", path),
	)
	return db, nil
}

// ValidateIdentifier checks that name is safe to splice into SQL as a table or
// column name.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid SQL identifier %q", name)
	}
	return nil
}

// Placeholders returns "?, ?, ..." with n markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
