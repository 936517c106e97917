package pipeline

import (
	"context"
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netweaver/nidcore/internal/capture"
)

// buildTCPFrame constructs a minimal Ethernet+IPv4+TCP frame for pipeline
// tests, mirroring internal/feature's tcpPacket test helper at the wire
// level instead of the already-parsed level.
func buildTCPFrame(srcIP, dstIP string, srcPort, dstPort uint16, flags uint8) []byte {
	frame := make([]byte, 14+20+20)
	binary.BigEndian.PutUint16(frame[12:14], 0x0800) // IPv4

	ip := frame[14:34]
	ip[0] = 0x45 // version 4, IHL 5
	binary.BigEndian.PutUint16(ip[2:4], uint16(len(ip)+20))
	ip[9] = 6 // TCP
	copy(ip[12:16], net.ParseIP(srcIP).To4())
	copy(ip[16:20], net.ParseIP(dstIP).To4())

	tcp := frame[34:54]
	binary.BigEndian.PutUint16(tcp[0:2], srcPort)
	binary.BigEndian.PutUint16(tcp[2:4], dstPort)
	tcp[12] = 5 << 4 // data offset 5
	tcp[13] = flags

	return frame
}

// memorySource replays a fixed slice of frames then reports end of stream,
// standing in for capture.OfflineSource without touching libpcap.
type memorySource struct {
	mu     sync.Mutex
	frames [][]byte
	idx    int
}

func (m *memorySource) Next(ctx context.Context) (capture.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idx >= len(m.frames) {
		return capture.Frame{}, capture.ErrEndOfStream
	}
	f := capture.Frame{TimestampMicros: time.Now().UnixMicro(), Bytes: m.frames[m.idx]}
	m.idx++
	return f, nil
}

func (m *memorySource) Close() error       { return nil }
func (m *memorySource) Stats() capture.Stats { return capture.Stats{} }

func TestPipelineProcessesSYNScanAndCountsAlerts(t *testing.T) {
	ports := []uint16{22, 80, 443, 3306, 8080}
	var frames [][]byte
	for _, port := range ports {
		frames = append(frames, buildTCPFrame("10.0.0.50", "192.168.1.100", 51000, port, 0x02))
	}

	src := &memorySource{frames: frames}
	logger := zap.NewNop()
	p := New(Config{Source: src, Toggles: DefaultToggles()}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	require.NoError(t, p.Close())

	snap := p.Statistics().Snapshot(time.Now())
	assert.Equal(t, uint64(5), snap.TotalPackets)
	assert.GreaterOrEqual(t, snap.AlertsTotal, uint64(5))
}

func TestPipelineSkipsTrackingWhenToggledOff(t *testing.T) {
	frame := buildTCPFrame("10.0.0.1", "10.0.0.2", 1234, 80, 0x02)
	src := &memorySource{frames: [][]byte{frame}}
	logger := zap.NewNop()

	toggles := DefaultToggles()
	toggles.Track = false
	toggles.Extract = false
	toggles.Rules = false

	p := New(Config{Source: src, Toggles: toggles}, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	require.NoError(t, p.Close())

	assert.Equal(t, 0, p.tracker.Len())
}
