package publish

import (
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/netweaver/nidcore/internal/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	sent   chan []byte
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sent: make(chan []byte, 16)}
}

func (f *fakeTransport) Send(rec []byte) error {
	f.sent <- rec
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func TestFeaturePublisherEncodesAllFields(t *testing.T) {
	ft := newFakeTransport()
	var overflow atomic.Uint64
	p := NewFeaturePublisher(ft, &overflow)
	defer p.Close()

	v := &feature.Vector{SrcPort: 80, DstPort: 443, Protocol: 6}
	require.NoError(t, p.Publish(v))

	select {
	case rec := <-ft.sent:
		var decoded map[string]float64
		require.NoError(t, json.Unmarshal(rec, &decoded))
		assert.Len(t, decoded, feature.NumFields)
		assert.Equal(t, 80.0, decoded["src_port"])
		assert.Equal(t, 443.0, decoded["dst_port"])
	case <-time.After(time.Second):
		t.Fatal("transport never received record")
	}
}

func TestFeaturePublisherDropsOldestWhenFull(t *testing.T) {
	ft := newFakeTransport()
	var overflow atomic.Uint64

	// Don't start the drain goroutine path from consuming; instead fill
	// the queue directly to exercise the overflow branch deterministically.
	p := &FeaturePublisher{
		transport: ft,
		queue:     make(chan []byte, 2),
		overflow:  &overflow,
		done:      make(chan struct{}),
	}

	v := &feature.Vector{}
	require.NoError(t, p.Publish(v))
	require.NoError(t, p.Publish(v))
	require.NoError(t, p.Publish(v))

	assert.Equal(t, uint64(1), overflow.Load())
	assert.Len(t, p.queue, 2)
}
