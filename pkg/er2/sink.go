// sink.go defines the Sink interface for report destinations.

package er2

import "context"

// Sink is a destination for finished reports.
// Implementations must be safe for concurrent use and must not modify the report.
type Sink interface {
	// Write delivers one report.
	Write(ctx context.Context, report *Report) error

	// Close releases resources held by the sink.
	Close() error
}
