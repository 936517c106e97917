// Package capture implements the two capture-source modes of spec.md
// §4.1: reading frames from a prerecorded file in file order, or from a
// live, promiscuous network interface. Both share the Source contract so
// the pipeline never needs to know which one it's driving.
package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

// snapLen is the maximum per-frame capture length, per spec.md §4.1.
const snapLen = 65535

// liveReadTimeout bounds how long a live read can block, so shutdown
// signals and statistics ticks are observed promptly (spec.md §4.1).
const liveReadTimeout = 100 * time.Millisecond

// Frame is one captured link-layer frame. Bytes aliases the capture
// handle's internal buffer and is only valid until the next Next call —
// callers must not retain it past that point (spec.md §3's Frame
// lifetime rule).
type Frame struct {
	TimestampMicros int64
	Bytes           []byte
}

// Stats reports a source's cumulative packet/drop counters.
type Stats struct {
	PacketsReceived uint64
	PacketsDropped  uint64
}

// Source is the capture-layer contract: a pull operation returning the
// next frame or io.EOF-equivalent end-of-stream, prompt cancellation via
// ctx, and a Close that releases the underlying handle.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
	Stats() Stats
}

// ErrEndOfStream is returned by OfflineSource.Next once the capture file
// is exhausted.
var ErrEndOfStream = fmt.Errorf("capture: end of stream")

// baseSource holds the pcap plumbing shared by both modes.
type baseSource struct {
	handle *pcap.Handle
	source *gopacket.PacketSource
}

func (b *baseSource) Close() error {
	b.handle.Close()
	return nil
}

func (b *baseSource) Stats() Stats {
	st, err := b.handle.Stats()
	if err != nil {
		return Stats{}
	}
	return Stats{
		PacketsReceived: uint64(st.PacketsReceived),
		PacketsDropped:  uint64(st.PacketsDropped),
	}
}

// next pulls the next packet from the underlying gopacket source,
// translating its metadata timestamp into microseconds since epoch and
// selecting on ctx so a pending pull unblocks promptly on cancellation.
func (b *baseSource) next(ctx context.Context) (Frame, error) {
	type result struct {
		pkt gopacket.Packet
		err error
	}
	done := make(chan result, 1)
	go func() {
		pkt, err := b.source.NextPacket()
		done <- result{pkt, err}
	}()

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return Frame{}, r.err
		}
		ci := r.pkt.Metadata().CaptureInfo
		return Frame{
			TimestampMicros: ci.Timestamp.UnixMicro(),
			Bytes:           r.pkt.Data(),
		}, nil
	}
}
