// Package publish implements the feature-vector publisher and alert sink
// of spec.md §4.7: a bounded, drop-oldest queue feeding one of two
// interchangeable Transports, plus a console+JSONL alert sink.
package publish

import (
	"encoding/json"
	"sync/atomic"

	"github.com/netweaver/nidcore/internal/feature"
)

// QueueHighWaterMark bounds the in-memory queue shared by every
// Transport, per spec.md §6's glossary.
const QueueHighWaterMark = 10_000

// Transport delivers serialized feature-vector records to whatever sits
// downstream (a TCP broadcast bus or an AMQP exchange). Send must not
// block the caller for long; both implementations own their own internal
// buffering and retry/reconnect behavior.
type Transport interface {
	Send(record []byte) error
	Close() error
}

// FeaturePublisher serializes FeatureVectors to the stable JSON schema of
// spec.md §6 and feeds a bounded, drop-oldest queue drained by a
// background goroutine into the configured Transport.
type FeaturePublisher struct {
	transport Transport
	queue     chan []byte
	overflow  *atomic.Uint64
	done      chan struct{}
}

// NewFeaturePublisher starts the publisher's drain goroutine immediately;
// callers must call Close to stop it.
func NewFeaturePublisher(t Transport, overflow *atomic.Uint64) *FeaturePublisher {
	p := &FeaturePublisher{
		transport: t,
		queue:     make(chan []byte, QueueHighWaterMark),
		overflow:  overflow,
		done:      make(chan struct{}),
	}
	go p.drain()
	return p
}

// Publish enqueues v for delivery, encoding it to the wire schema first.
// If the queue is at capacity, the oldest queued record is dropped to
// make room (never-block policy of spec.md §4.7) and the overflow
// counter is incremented.
func (p *FeaturePublisher) Publish(v *feature.Vector) error {
	data, err := encodeVector(v)
	if err != nil {
		return err
	}
	select {
	case p.queue <- data:
		return nil
	default:
		select {
		case <-p.queue:
			p.overflow.Add(1)
		default:
		}
		select {
		case p.queue <- data:
		default:
			p.overflow.Add(1)
		}
		return nil
	}
}

// encodeVector renders a feature.Vector as the full field-name-keyed JSON
// record of spec.md §6, keyed by feature.Header so the wire schema tracks
// the vector's field order exactly.
func encodeVector(v *feature.Vector) ([]byte, error) {
	values := v.Values()
	out := make(map[string]float64, len(values))
	for i, name := range feature.Header {
		out[name] = values[i]
	}
	return json.Marshal(out)
}

func (p *FeaturePublisher) drain() {
	for {
		select {
		case rec := <-p.queue:
			if err := p.transport.Send(rec); err != nil {
				// Transport errors are the transport's problem to retry
				// or log; the publisher itself never blocks or panics.
				continue
			}
		case <-p.done:
			return
		}
	}
}

// Close stops the drain goroutine and closes the underlying Transport.
func (p *FeaturePublisher) Close() error {
	close(p.done)
	return p.transport.Close()
}
