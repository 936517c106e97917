package publish

import (
	"os"
	"sync"

	"github.com/netweaver/nidcore/internal/feature"
)

// CSVSink appends extracted FeatureVectors to a CSV file, writing the
// canonical header once up front, implementing the feature CSV export
// external interface of spec.md §6.
type CSVSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewCSVSink opens path for appending, writing the canonical CSVHeader
// line first if the file is new or empty.
func NewCSVSink(path string) (*CSVSink, error) {
	info, statErr := os.Stat(path)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	if statErr != nil || info.Size() == 0 {
		if _, err := f.WriteString(feature.CSVHeader() + "\n"); err != nil {
			f.Close()
			return nil, err
		}
	}

	return &CSVSink{file: f}, nil
}

// Write appends v as one CSV row and flushes it immediately, matching
// AlertSink's per-record Sync so a crash loses at most the in-flight row.
func (s *CSVSink) Write(v *feature.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.WriteString(v.CSVRow() + "\n"); err != nil {
		return err
	}
	return s.file.Sync()
}

// Close closes the underlying file.
func (s *CSVSink) Close() error {
	return s.file.Close()
}
