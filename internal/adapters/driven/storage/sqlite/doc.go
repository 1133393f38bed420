// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - ActStore: Harvested acts, natural-key deduplication and soft delete
//   - RunLogStore: Append-only pipeline run audit
//   - JobStore: Scheduled jobs and their fire history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Calendar dates are stored as YYYY-MM-DD text and instants as fixed-width
// UTC text, so lexical order is chronological order.
//
// # Data Location
//
// By default, the database is stored at ~/.actharvest/data/actharvest.db
//
// # Thread Safety
//
// All operations are thread-safe. Transactions take the write lock up front
// (_txlock=immediate) and wait on busy_timeout, so concurrent ingests
// serialise instead of failing.
package sqlite
