package capture

import (
	"context"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

// LiveSource captures frames from a promiscuous live interface with
// kernel-supplied timestamps, per spec.md §4.1.
type LiveSource struct {
	baseSource
}

// NewLiveSource opens a promiscuous capture handle on iface. bpfFilter,
// if non-empty, is applied via SetBPFFilter (an ambient addition, off by
// default, for operators who want kernel-side narrowing).
func NewLiveSource(iface, bpfFilter string) (*LiveSource, error) {
	inactive, err := pcap.NewInactiveHandle(iface)
	if err != nil {
		return nil, fmt.Errorf("capture: opening interface %s: %w", iface, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(snapLen); err != nil {
		return nil, fmt.Errorf("capture: set snaplen: %w", err)
	}
	if err := inactive.SetPromisc(true); err != nil {
		return nil, fmt.Errorf("capture: set promiscuous mode: %w", err)
	}
	if err := inactive.SetTimeout(liveReadTimeout); err != nil {
		return nil, fmt.Errorf("capture: set read timeout: %w", err)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("capture: activating interface %s: %w", iface, err)
	}

	if bpfFilter != "" {
		if err := handle.SetBPFFilter(bpfFilter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("capture: invalid BPF filter %q: %w", bpfFilter, err)
		}
	}

	return &LiveSource{
		baseSource: baseSource{
			handle: handle,
			source: newPacketSource(handle),
		},
	}, nil
}

// Next returns the next frame. A per-read timeout with no packet is not
// an error: Next simply retries until ctx is cancelled or a frame
// arrives, keeping the ≤100ms responsiveness spec.md §4.1 requires.
func (s *LiveSource) Next(ctx context.Context) (Frame, error) {
	for {
		f, err := s.next(ctx)
		if err == nil {
			return f, nil
		}
		if ctx.Err() != nil {
			return Frame{}, ctx.Err()
		}
		if isTimeout(err) {
			continue
		}
		return Frame{}, err
	}
}

func newPacketSource(handle *pcap.Handle) *gopacket.PacketSource {
	src := gopacket.NewPacketSource(handle, handle.LinkType())
	src.NoCopy = true
	src.Lazy = true
	return src
}

func isEOF(err error) bool {
	return err != nil && err.Error() == "EOF"
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	if t, ok := err.(timeouter); ok {
		return t.Timeout()
	}
	return false
}
