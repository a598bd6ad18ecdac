package database

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories for database operations
const (
	CategoryConnection  = "connection"
	CategoryQuery       = "query"
	CategoryConstraint  = "constraint"
	CategoryTransaction = "transaction"
	CategoryBusy        = "busy"
	CategoryUnknown     = "unknown"
)

// DatabaseError represents a categorized database error with context.
//
//nolint:revive // DatabaseError is a clear, descriptive name that doesn't stutter in practice
type DatabaseError struct {
	Category    string // Error category (connection, query, constraint, etc.)
	Operation   string // Operation that failed (open, create, insert, etc.)
	Message     string // User-friendly error message
	Query       string // The statement that caused the error, without values
	OriginalErr error  // The underlying database error
}

func (e *DatabaseError) Error() string {
	var msg string
	if e.Query != "" {
		msg = fmt.Sprintf("database %s error in %s: %s", e.Category, e.Operation, e.Message)
	} else {
		msg = fmt.Sprintf("database %s error: %s", e.Category, e.Message)
	}
	if e.OriginalErr != nil {
		msg += fmt.Sprintf(" (original: %v)", e.OriginalErr)
	}
	return msg
}

func (e *DatabaseError) Unwrap() error {
	return e.OriginalErr
}

// NewDatabaseError creates a new database error with the given details.
func NewDatabaseError(category, operation, message string, originalErr error) *DatabaseError {
	return &DatabaseError{
		Category:    category,
		Operation:   operation,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewConnectionError creates a connection error.
func NewConnectionError(message string, originalErr error) *DatabaseError {
	return NewDatabaseError(CategoryConnection, "open", message, originalErr)
}

// NewTransactionError creates a transaction error.
func NewTransactionError(message string, originalErr error) *DatabaseError {
	return NewDatabaseError(CategoryTransaction, "transaction", message, originalErr)
}

// ClassifyDatabaseError classifies a raw SQLite error into a DatabaseError.
func ClassifyDatabaseError(err error, operation, query string) *DatabaseError {
	if err == nil {
		return nil
	}

	errMsg := err.Error()
	lower := strings.ToLower(errMsg)

	dbErr := &DatabaseError{
		Category:    CategoryQuery,
		Operation:   operation,
		Message:     errMsg,
		Query:       sanitizeQuery(query),
		OriginalErr: err,
	}
	switch {
	case containsAny(lower, "database is locked", "sqlite_busy", "database table is locked"):
		dbErr.Category = CategoryBusy
		dbErr.Message = "database is busy"
	case containsAny(lower, "unable to open", "out of memory", "disk i/o", "readonly database", "not a database"):
		dbErr.Category = CategoryConnection
		dbErr.Message = "database file cannot be used"
	case containsAny(lower, "unique constraint", "constraint failed", "not null constraint"):
		dbErr.Category = CategoryConstraint
		dbErr.Message = extractConstraintMessage(lower)
	case containsAny(lower, "syntax error", "near \"", "no such table", "no such column"):
		dbErr.Message = "SQL error: " + errMsg
	}
	return dbErr
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// extractConstraintMessage extracts a user-friendly message from a constraint error.
func extractConstraintMessage(errMsg string) string {
	if strings.Contains(errMsg, "unique") {
		return "unique constraint violation: duplicate value exists"
	}
	if strings.Contains(errMsg, "not null") {
		return "not-null constraint violation: required field is null"
	}
	return "constraint violation"
}

// sanitizeQuery truncates a statement for logging.
func sanitizeQuery(query string) string {
	if len(query) > 500 {
		return query[:500] + "... (truncated)"
	}
	return query
}

// IsDatabaseError checks if the error is a DatabaseError.
func IsDatabaseError(err error) bool {
	var dbErr *DatabaseError
	return errors.As(err, &dbErr)
}

// GetDatabaseError extracts the DatabaseError from an error chain.
func GetDatabaseError(err error) *DatabaseError {
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return dbErr
	}
	return nil
}
