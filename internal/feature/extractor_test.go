package feature

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/netweaver/nidcore/internal/flow"
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

func TestExtractBasicFlow(t *testing.T) {
	tr := flow.NewTracker(0, 0, nil)
	base := int64(1_000_000)

	var last *packet.ParsedPacket
	for _, iat := range []float64{0, 0.1, 0.2, 0.4} {
		base += int64(iat * 1e6)
		last = tcpPacket(t, "10.0.0.1", "10.0.0.2", 1234, 80, packet.TCPFlagACK, base, 100)
		tr.Update(last)
	}
	f, ok := tr.Get(func() flow.Key { k, _ := flow.KeyFor(last); return k }())
	require.True(t, ok)

	e := NewExtractor()
	v := e.Extract(f, last)

	assert.EqualValues(t, 4, v.TotalFwdPackets)
	assert.EqualValues(t, 0, v.TotalBwdPackets)
	assert.EqualValues(t, 400, v.TotalLengthFwdPackets)
	assert.InDelta(t, 0.2333, v.FwdIATMean, 0.001)
	assert.Greater(t, v.Duration, 0.0)
	assert.EqualValues(t, 1234, v.SrcPort)
	assert.EqualValues(t, 80, v.DstPort)
	assert.EqualValues(t, packet.ProtoTCP, v.Protocol)
}

func TestCSVRoundTrip(t *testing.T) {
	tr := flow.NewTracker(0, 0, nil)
	base := int64(0)
	var last *packet.ParsedPacket
	for i := 0; i < 6; i++ {
		base += int64(time.Second / time.Microsecond)
		last = tcpPacket(t, "1.1.1.1", "2.2.2.2", 11, 22, packet.TCPFlagACK, base, 64)
		tr.Update(last)
	}
	key, _ := flow.KeyFor(last)
	f, ok := tr.Get(key)
	require.True(t, ok)

	v := NewExtractor().Extract(f, last)
	row := v.CSVRow()

	assert.Equal(t, NumFields, len(v.Values()))
	assert.Equal(t, NumFields, len(strings.Split(CSVHeader(), ",")))

	round, err := ParseCSVRow(row)
	require.NoError(t, err)
	assert.InDeltaSlice(t, v.Values(), round.Values(), 1e-6)
}
