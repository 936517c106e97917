package flow

import (
	"math"
	"net"
	"testing"
	"time"

	"github.com/netweaver/nidcore/internal/alert"
	"github.com/netweaver/nidcore/internal/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tcpPacket(t *testing.T, srcIP, dstIP string, srcPort, dstPort uint16, flags uint8, timestampMicros int64, wireLen int) *packet.ParsedPacket {
	t.Helper()
	return &packet.ParsedPacket{
		PacketID:  uint64(timestampMicros),
		Timestamp: timestampMicros,
		WireLen:   wireLen,
		IP: packet.IPv4Header{
			Protocol: packet.ProtoTCP,
			SrcIP:    net.ParseIP(srcIP).To4(),
			DstIP:    net.ParseIP(dstIP).To4(),
		},
		HasTCP: true,
		TCP: packet.TCPHeader{
			SrcPort: srcPort,
			DstPort: dstPort,
			Flags:   flags,
		},
	}
}

// S4 — bidirectional flow timing: 4 forward packets at IATs {0.1, 0.2, 0.4}s.
func TestS4FlowTiming(t *testing.T) {
	tr := NewTracker(0, 0, nil)

	base := int64(1_000_000)
	iats := []float64{0, 0.1, 0.2, 0.4}
	var f *Stats
	for _, iat := range iats {
		base += int64(iat * 1e6)
		pkt := tcpPacket(t, "10.0.0.1", "10.0.0.2", 1234, 80, packet.TCPFlagACK, base, 100)
		f = tr.Update(pkt)
	}
	require.NotNil(t, f)

	assert.EqualValues(t, 4, f.Forward.Packets)
	assert.Equal(t, 3, len(f.Forward.IATValues()))
	assert.InDelta(t, 0.2333, f.Forward.IATMean(), 0.001)
	assert.InDelta(t, 0.1528, f.Forward.IATStd(), 0.001)
}

// Extension of S4 (per spec.md §9's explicit instruction) verifying
// backward accounting once a reverse-direction packet arrives.
func TestS4ExtendedBackwardAccounting(t *testing.T) {
	tr := NewTracker(0, 0, nil)

	base := int64(1_000_000)
	// Forward: client SYN.
	f := tr.Update(tcpPacket(t, "10.0.0.1", "10.0.0.2", 1234, 80, packet.TCPFlagSYN, base, 60))
	require.NotNil(t, f)
	require.EqualValues(t, 1, f.Forward.Packets)
	require.EqualValues(t, 0, f.Backward.Packets)

	// Reverse: server SYN-ACK.
	base += int64(0.05 * 1e6)
	f = tr.Update(tcpPacket(t, "10.0.0.2", "10.0.0.1", 80, 1234, packet.TCPFlagSYN|packet.TCPFlagACK, base, 60))
	require.NotNil(t, f)
	assert.EqualValues(t, 1, f.Forward.Packets)
	assert.EqualValues(t, 1, f.Backward.Packets)
	assert.Equal(t, StateSynReceived, f.State)

	// Forward: client ACK completes the handshake.
	base += int64(0.01 * 1e6)
	f = tr.Update(tcpPacket(t, "10.0.0.1", "10.0.0.2", 1234, 80, packet.TCPFlagACK, base, 60))
	assert.EqualValues(t, 2, f.Forward.Packets)
	assert.Equal(t, StateEstablished, f.State)
}

// Invariant 2: fwd_packets == len(fwd_pkt_lengths) == 1 + len(fwd_iat).
func TestInvariantForwardCountsConsistent(t *testing.T) {
	tr := NewTracker(0, 0, nil)
	base := int64(0)
	var f *Stats
	for i := 0; i < 5; i++ {
		base += int64(time.Second / time.Microsecond)
		f = tr.Update(tcpPacket(t, "1.1.1.1", "2.2.2.2", 1, 2, packet.TCPFlagACK, base, 40))
	}
	assert.EqualValues(t, f.Forward.Packets, f.Forward.lengths.Count())
	assert.EqualValues(t, f.Forward.Packets, 1+f.Forward.iat.Count())
}

// Invariant 3: duration == last_seen - start_time.
func TestInvariantDuration(t *testing.T) {
	tr := NewTracker(0, 0, nil)
	tr.Update(tcpPacket(t, "1.1.1.1", "2.2.2.2", 1, 2, packet.TCPFlagSYN, 1_000_000, 40))
	f := tr.Update(tcpPacket(t, "1.1.1.1", "2.2.2.2", 1, 2, packet.TCPFlagACK, 4_000_000, 40))
	assert.InDelta(t, 3.0, f.DurationSeconds(), 1e-9)
}

// Invariant 4: TCP state only reachable via the documented transitions.
func TestTCPStateMachine(t *testing.T) {
	tests := []struct {
		name  string
		flags []uint8
		want  State
	}{
		{"syn-only", []uint8{packet.TCPFlagSYN}, StateSynSent},
		{"handshake", []uint8{packet.TCPFlagSYN, packet.TCPFlagSYN | packet.TCPFlagACK, packet.TCPFlagACK}, StateEstablished},
		{"fin-after-established", []uint8{packet.TCPFlagSYN, packet.TCPFlagSYN | packet.TCPFlagACK, packet.TCPFlagACK, packet.TCPFlagFIN}, StateFinWait},
		{"rst-after-established", []uint8{packet.TCPFlagSYN, packet.TCPFlagSYN | packet.TCPFlagACK, packet.TCPFlagACK, packet.TCPFlagRST}, StateClosed},
		{"rst-immediately", []uint8{packet.TCPFlagRST}, StateUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s State = StateUnknown
			for _, f := range tt.flags {
				s = advance(s, f)
			}
			assert.Equal(t, tt.want, s)
		})
	}
}

// S5 — flow expiry.
func TestS5FlowExpiry(t *testing.T) {
	tr := NewTracker(5, 0, nil)
	start := time.Now()
	tr.Update(tcpPacket(t, "1.1.1.1", "2.2.2.2", 1, 2, packet.TCPFlagSYN, start.UnixMicro(), 40))
	require.Equal(t, 1, tr.Len())

	removed := tr.Sweep(start.Add(7 * time.Second))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, tr.Len())
}

// Boundary: table full, no evictable flow => new flow dropped, counter incremented.
func TestTrackerFullDropsNewFlow(t *testing.T) {
	st := alert.NewStatistics(time.Now())
	tr := NewTracker(120, 1, st)

	now := time.Now().UnixMicro()
	f1 := tr.Update(tcpPacket(t, "1.1.1.1", "2.2.2.2", 1, 2, packet.TCPFlagSYN, now, 40))
	require.NotNil(t, f1)

	f2 := tr.Update(tcpPacket(t, "3.3.3.3", "4.4.4.4", 3, 4, packet.TCPFlagSYN, now, 40))
	assert.Nil(t, f2)
	assert.Equal(t, uint64(1), st.DroppedNewFlows.Load())
}

func TestUpdateComputedFeaturesIdempotent(t *testing.T) {
	tr := NewTracker(0, 0, nil)
	tr.Update(tcpPacket(t, "1.1.1.1", "2.2.2.2", 1, 2, packet.TCPFlagSYN, 0, 40))
	f := tr.Update(tcpPacket(t, "1.1.1.1", "2.2.2.2", 1, 2, packet.TCPFlagACK, int64(time.Second/time.Microsecond), 40))

	f.UpdateComputedFeatures()
	mean1, std1 := f.Forward.IATMean(), f.Forward.IATStd()
	f.UpdateComputedFeatures()
	mean2, std2 := f.Forward.IATMean(), f.Forward.IATStd()

	assert.True(t, math.Abs(mean1-mean2) < 1e-12)
	assert.True(t, math.Abs(std1-std2) < 1e-12)
}
