// Package logging provides concrete implementations of the pvsload.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: Writes human-readable lines to an io.Writer (stdout by default)
//   - ZapLogger: Writes JSON lines through go.uber.org/zap
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
