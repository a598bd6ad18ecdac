package errhandling

import "strings"

// OnErrorStrategy defines what action to take when a record cannot be evaluated.
type OnErrorStrategy string

// Error handling strategies
const (
	// OnErrorFail stops execution and returns error (default).
	OnErrorFail OnErrorStrategy = "fail"

	// OnErrorSkip drops the failing record and continues.
	OnErrorSkip OnErrorStrategy = "skip"

	// OnErrorLog logs the error, keeps the record and continues.
	OnErrorLog OnErrorStrategy = "log"
)

// ParseOnErrorStrategy parses an error strategy string.
// Returns OnErrorFail for invalid or empty input.
func ParseOnErrorStrategy(s string) OnErrorStrategy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "skip":
		return OnErrorSkip
	case "log":
		return OnErrorLog
	default:
		return OnErrorFail
	}
}

// Valid reports whether s is one of the known strategies.
func (s OnErrorStrategy) Valid() bool {
	switch s {
	case OnErrorFail, OnErrorSkip, OnErrorLog:
		return true
	}
	return false
}
