// Package diag defines the message model shared by every compiler phase.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Code – the closed message identifier enum (codes.go). Its numeric band
//     decides the severity: 1..4999 errors, 5000..7999 warnings, 8000..9999
//     informational messages.
//   - Args – the values substituted into the culture-specific format string.
//   - Message – the text rendered with the default (English) table at report
//     time; renderers may re-format Args with another MessageTable.
//   - Primary span – the source.Span the message points at.
//   - Notes – optional secondary spans.
//
// # Concurrency
//
// Bag is the only synchronised structure of the semantic core: every
// mutation and read takes its mutex, so recognizers running in parallel may
// report into one Bag. Reporter implementations in this package are thin
// adapters and inherit that guarantee from the Bag they write to, except
// DedupReporter which carries its own lock.
//
// # Internal errors
//
// Language errors are always reported, never returned or panicked. Broken
// compiler invariants are not language errors: they go through Fatalf, which
// panics with *InternalError and is never converted into a diagnostic.
package diag
