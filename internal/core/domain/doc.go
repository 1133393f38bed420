// Package domain defines the core business entities for actharvest.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawActRow: Free-text cells exactly as the registry renders them
//   - ActRecord: A normalised regulatory act keyed by its natural key
//   - StoredAct: An ActRecord with identity and lifecycle timestamps
//   - RunLogEntry: The immutable audit record of one pipeline run
//   - ScheduledJob: A trigger bound to "run the pipeline once"
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
