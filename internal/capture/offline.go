package capture

import (
	"context"
	"fmt"

	"github.com/google/gopacket/pcap"
)

// OfflineSource reads frames from a capture file in file order,
// preserving the file's original timestamps (spec.md §4.1).
type OfflineSource struct {
	baseSource
}

// NewOfflineSource opens path for offline replay.
func NewOfflineSource(path string) (*OfflineSource, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("capture: opening %s: %w", path, err)
	}
	return &OfflineSource{
		baseSource: baseSource{
			handle: handle,
			source: newPacketSource(handle),
		},
	}, nil
}

// Next returns the next frame, or ErrEndOfStream once the file is
// exhausted.
func (s *OfflineSource) Next(ctx context.Context) (Frame, error) {
	f, err := s.next(ctx)
	if err != nil {
		if isEOF(err) {
			return Frame{}, ErrEndOfStream
		}
		return Frame{}, err
	}
	return f, nil
}
