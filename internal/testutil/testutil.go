// Package testutil provides shared testing utilities: an in-memory Querier,
// deterministic AI doubles, and a PostgreSQL test container with the schema
// applied.
package testutil

import (
	"log/slog"
)

// DiscardLogger returns a slog.Logger that discards all output.
// log.Logger is a type alias for *slog.Logger, so this is interchangeable
// with log.NewNop().
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
