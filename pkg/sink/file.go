package sink

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"assertscan/pkg/errors"
)

// FileSink appends newline-delimited JSON records to a single file.
//
// Each record is one line of the form {"<package>":["assert ...", ...]}.
// A mutex serializes writers so concurrent appends never interleave.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileSink opens (and truncates) the output file at path.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "opening output file %s", path)
	}
	return &FileSink{file: f}, nil
}

// Append writes one JSON line for the record and flushes it to disk.
func (s *FileSink) Append(ctx context.Context, rec Record) error {
	asserts := rec.Assertions
	if asserts == nil {
		asserts = []string{}
	}
	line, err := json.Marshal(map[string][]string{rec.Package: asserts})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding record for %s", rec.Package)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(line); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "writing record for %s", rec.Package)
	}
	return s.file.Sync()
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
