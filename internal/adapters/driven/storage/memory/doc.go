// Package memory provides in-memory implementations of the storage ports.
// They back the "memory" storage driver and are used in tests.
package memory
