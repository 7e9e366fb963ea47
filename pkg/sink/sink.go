// Package sink persists scan records.
package sink

import (
	"context"

	"assertscan/pkg/errors"
)

// Record holds the scan result for one package.
type Record struct {
	Package    string   `json:"package" bson:"package"`
	Assertions []string `json:"assertions" bson:"assertions"`
}

// Sink receives one record per successfully scanned package.
//
// Append must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, rec Record) error
	Close() error
}

// Multi fans a record out to several sinks.
type Multi []Sink

// NewMulti returns a sink writing to all of the given sinks in order.
func NewMulti(sinks ...Sink) Multi {
	return Multi(sinks)
}

// Append writes the record to every sink, stopping at the first failure.
func (m Multi) Append(ctx context.Context, rec Record) error {
	for _, s := range m {
		if err := s.Append(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all sinks and returns the first error encountered.
func (m Multi) Close() error {
	var firstErr error
	for _, s := range m {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(errors.ErrCodeInternal, err, "closing sink")
		}
	}
	return firstErr
}
