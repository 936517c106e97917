// Package flow maintains per-connection state: the canonical flow key,
// directional packet/byte/IAT accounting, the TCP state machine, and
// idle-flow expiry. The map-of-pointers-guarded-by-one-mutex shape is
// grounded on the teacher's services/self-healing/internal/detector
// DeviceState table (map[string]*DeviceState behind sync.RWMutex),
// generalized here from per-device health state to per-5-tuple flow
// state.
package flow

import (
	"sync"
	"time"

	"github.com/netweaver/nidcore/internal/alert"
	"github.com/netweaver/nidcore/internal/packet"
)

// defaults from spec.md §3/§4.4.2.
const (
	DefaultTimeoutSeconds = 120
	DefaultMaxConnections = 100_000
)

// Tracker owns the flow table. It is built to be driven exclusively by
// the single pipeline goroutine described in spec.md §5; it takes its own
// mutex only because the expiry sweep and a future read-only snapshot API
// (spec.md §5's "message-passing snapshot API") may run from a different
// goroutine.
type Tracker struct {
	mu    sync.RWMutex
	flows map[Key]*Stats

	timeoutSeconds int64
	maxConnections int

	stats *alert.Statistics
}

// NewTracker creates a Tracker with the given idle timeout and capacity.
// A zero value for either selects the spec.md default.
func NewTracker(timeoutSeconds int64, maxConnections int, stats *alert.Statistics) *Tracker {
	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultTimeoutSeconds
	}
	if maxConnections <= 0 {
		maxConnections = DefaultMaxConnections
	}
	return &Tracker{
		flows:          make(map[Key]*Stats),
		timeoutSeconds: timeoutSeconds,
		maxConnections: maxConnections,
		stats:          stats,
	}
}

// Update implements spec.md §4.4's per-packet tracker algorithm: look up
// or create the flow for pkt's canonical key, classify pkt's direction,
// record its counters, and advance the TCP state machine. Returns the
// flow (nil if the table was full and no flow was evictable — the new
// flow is dropped and a counter incremented, per spec.md §8's boundary
// behavior).
func (t *Tracker) Update(pkt *packet.ParsedPacket) *Stats {
	key, srcIsA := KeyFor(pkt)
	srcEndpoint := key.B
	if srcIsA {
		srcEndpoint = key.A
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	f, ok := t.flows[key]
	if !ok {
		if len(t.flows) >= t.maxConnections {
			t.sweepLocked(pkt.Timestamp)
			if len(t.flows) >= t.maxConnections {
				if t.stats != nil {
					t.stats.DroppedNewFlows.Add(1)
				}
				return nil
			}
		}
		f = newStats(key, srcEndpoint, pkt)
		t.flows[key] = f
	}

	f.update(pkt, srcEndpoint)
	return f
}

// Get returns the current flow for key, if tracked. A flow retrieved
// after having been swept is treated as absent (spec.md §4.4.2: "a flow
// that is retrieved after being expired shall be treated as a new
// flow").
func (t *Tracker) Get(key Key) (*Stats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.flows[key]
	return f, ok
}

// Len returns the number of tracked flows.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.flows)
}

// GetAllFlows returns a snapshot slice of every tracked flow's pointer.
// Matches spec.md §8 S5's get_all_flows() fixture hook.
func (t *Tracker) GetAllFlows() []*Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Stats, 0, len(t.flows))
	for _, f := range t.flows {
		out = append(out, f)
	}
	return out
}

// isExpired reports whether f is eligible for removal per spec.md
// §4.4.2: idle past the timeout, or in the terminal CLOSED state.
func (t *Tracker) isExpired(f *Stats, nowMicros int64) bool {
	if f.State == StateClosed {
		return true
	}
	idleSeconds := float64(nowMicros-f.LastSeen) / 1e6
	return idleSeconds > float64(t.timeoutSeconds)
}

// Sweep removes every expired flow as of now. Safe to call from a
// separate goroutine on a periodic ticker (spec.md §4.4.2: "periodically,
// ≥ every 30s, during live capture").
func (t *Tracker) Sweep(now time.Time) int {
	nowMicros := now.UnixMicro()
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sweepLocked(nowMicros)
}

func (t *Tracker) sweepLocked(nowMicros int64) int {
	removed := 0
	for k, f := range t.flows {
		if t.isExpired(f, nowMicros) {
			delete(t.flows, k)
			removed++
		}
	}
	if removed > 0 && t.stats != nil {
		t.stats.ExpiredFlows.Add(uint64(removed))
	}
	return removed
}

// TimeoutSeconds returns the tracker's configured idle timeout.
func (t *Tracker) TimeoutSeconds() int64 { return t.timeoutSeconds }

// MaxConnections returns the tracker's configured capacity.
func (t *Tracker) MaxConnections() int { return t.maxConnections }
