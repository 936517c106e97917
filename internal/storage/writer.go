package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/netweaver/nidcore/internal/alert"
	"github.com/netweaver/nidcore/internal/feature"
)

// featureRecord pairs a flow key with the vector extracted for it, the
// unit the BatchWriter buffers before a CopyFrom insert.
type featureRecord struct {
	flowKey string
	vector  *feature.Vector
}

// BatchWriter buffers feature vectors and alerts and flushes them to the
// archival database on a size or time trigger, adapted from the
// teacher's databaseWriter goroutine so that archival never blocks the
// pipeline's hot path.
type BatchWriter struct {
	client        *Client
	logger        *zap.Logger
	bufferSize    int
	flushInterval time.Duration

	featureCh chan featureRecord
	alertCh   chan alert.Alert
	done      chan struct{}
	stopped   chan struct{}
}

// NewBatchWriter starts the writer's background flush loop immediately.
func NewBatchWriter(client *Client, logger *zap.Logger, bufferSize int, flushInterval time.Duration) *BatchWriter {
	w := &BatchWriter{
		client:        client,
		logger:        logger,
		bufferSize:    bufferSize,
		flushInterval: flushInterval,
		featureCh:     make(chan featureRecord, bufferSize),
		alertCh:       make(chan alert.Alert, bufferSize),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go w.run()
	return w
}

// WriteFeatureVector enqueues v for archival, keyed by flowKey. A full
// buffer drops the record rather than blocking the caller — archival
// never sits on the pipeline's hot path.
func (w *BatchWriter) WriteFeatureVector(flowKey string, v *feature.Vector) {
	select {
	case w.featureCh <- featureRecord{flowKey: flowKey, vector: v}:
	default:
		w.logger.Warn("feature vector archival buffer full, dropping record")
	}
}

// WriteAlert enqueues a for archival.
func (w *BatchWriter) WriteAlert(a alert.Alert) {
	select {
	case w.alertCh <- a:
	default:
		w.logger.Warn("alert archival buffer full, dropping record")
	}
}

func (w *BatchWriter) run() {
	defer close(w.stopped)

	featureBatch := make([]featureRecord, 0, w.bufferSize)
	alertBatch := make([]alert.Alert, 0, w.bufferSize)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	flush := func() {
		w.flushFeatures(featureBatch)
		w.flushAlerts(alertBatch)
		featureBatch = featureBatch[:0]
		alertBatch = alertBatch[:0]
	}

	for {
		select {
		case <-w.done:
			flush()
			return
		case rec := <-w.featureCh:
			featureBatch = append(featureBatch, rec)
			if len(featureBatch) >= w.bufferSize {
				w.flushFeatures(featureBatch)
				featureBatch = featureBatch[:0]
			}
		case a := <-w.alertCh:
			alertBatch = append(alertBatch, a)
			if len(alertBatch) >= w.bufferSize {
				w.flushAlerts(alertBatch)
				alertBatch = alertBatch[:0]
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (w *BatchWriter) flushFeatures(batch []featureRecord) {
	if len(batch) == 0 {
		return
	}
	flowKeys := make([]string, len(batch))
	vectors := make([]*feature.Vector, len(batch))
	for i, rec := range batch {
		flowKeys[i] = rec.flowKey
		vectors[i] = rec.vector
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := w.client.InsertFeatureVectors(ctx, time.Now(), flowKeys, vectors); err != nil {
		w.logger.Error("failed to archive feature vectors", zap.Error(err), zap.Int("count", len(batch)))
	}
}

func (w *BatchWriter) flushAlerts(batch []alert.Alert) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := w.client.InsertAlerts(ctx, batch); err != nil {
		w.logger.Error("failed to archive alerts", zap.Error(err), zap.Int("count", len(batch)))
	}
}

// Close stops the flush loop, flushing any buffered records first.
func (w *BatchWriter) Close() {
	close(w.done)
	<-w.stopped
}
