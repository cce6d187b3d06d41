// Package writer provides the output sinks pipelines append finished
// records to. Writers are safe for concurrent Append calls from the worker
// pool and flush on Close.
package writer

import (
	"context"
)

// Writer is an output sink for finished records.
type Writer interface {
	// Append writes one record. Safe for concurrent use.
	Append(ctx context.Context, record string) error

	// Close flushes and releases the sink.
	Close() error
}
