// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - BrowserLauncher: Opens headless browser sessions
//   - Extractor: Pulls raw rows from the external registry
//   - ActNormaliser: Turns raw rows into canonical records
//   - IngestionGateway: Hands normalised batches to the Ingestor
//   - ActStore: Act persistence with transactional batch insert
//   - RunLogStore: Append-only run audit log
//   - JobStore: Scheduled job persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil or no-op - the application degrades gracefully:
//
//   - RunLock: Single-flight exclusion. Without it, runs may overlap.
//   - RunMetrics: Prometheus observations. NopMetrics discards them.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
