// Package pipeline wires capture, parsing, protocol decoding, flow
// tracking, feature extraction, rule evaluation, and publishing into the
// single-producer pipeline task of spec.md §5, adapted from the teacher's
// TelemetryAgent shape (one struct, a Start/Stop pair, per-concern
// goroutines connected by bounded channels, context-based shutdown).
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/netweaver/nidcore/internal/alert"
	"github.com/netweaver/nidcore/internal/capture"
	"github.com/netweaver/nidcore/internal/decode"
	"github.com/netweaver/nidcore/internal/feature"
	"github.com/netweaver/nidcore/internal/flow"
	"github.com/netweaver/nidcore/internal/packet"
	"github.com/netweaver/nidcore/internal/publish"
	"github.com/netweaver/nidcore/internal/rules"
	"github.com/netweaver/nidcore/internal/storage"
)

// Toggles selects which optional pipeline stages run, mirroring spec.md
// §6's CLI toggles for decode/track/extract/rules/CSV export.
type Toggles struct {
	Decode  bool
	Track   bool
	Extract bool
	Rules   bool
}

// DefaultToggles runs every stage, the pipeline's normal operating mode.
func DefaultToggles() Toggles {
	return Toggles{Decode: true, Track: true, Extract: true, Rules: true}
}

// Pipeline owns every stage of the packet-ingestion pipeline and the
// single goroutine that drives capture → parse → decode → track →
// extract → rules. The publisher and the (optional) archival writer each
// own their own goroutine, fed by the pipeline goroutine through bounded
// channels. The alert sink and the (optional) CSV sink have no goroutine
// of their own: they are written synchronously on the pipeline goroutine.
type Pipeline struct {
	logger *zap.Logger

	source  capture.Source
	parser  *packet.Parser
	tracker *flow.Tracker
	extract *feature.Extractor
	engine  *rules.Engine

	publisher *publish.FeaturePublisher
	alertSink *publish.AlertSink
	csvSink   *publish.CSVSink     // nil if CSV export is disabled
	archival  *storage.BatchWriter // nil if archival is disabled

	toggles Toggles
	stats   *alert.Statistics

	sweepInterval time.Duration
	statsInterval time.Duration

	wg sync.WaitGroup
}

// Config bundles the constructor dependencies for a Pipeline. Every field
// except Source has a usable zero value; a nil Publisher or AlertSink
// simply skips that output.
type Config struct {
	Source    capture.Source
	Publisher *publish.FeaturePublisher
	AlertSink *publish.AlertSink
	CSVSink   *publish.CSVSink
	Archival  *storage.BatchWriter

	Toggles Toggles

	// Stats is shared with the caller so it can wire counters (e.g. the
	// publisher's overflow count) before the pipeline starts. If nil, New
	// creates one.
	Stats *alert.Statistics

	IdleTimeoutSeconds int64
	MaxActiveFlows     int
	SweepInterval      time.Duration
	StatsInterval      time.Duration
}

// New builds a Pipeline. If cfg.Stats is nil its Statistics record starts
// counting from the moment New is called.
func New(cfg Config, logger *zap.Logger) *Pipeline {
	stats := cfg.Stats
	if stats == nil {
		stats = alert.NewStatistics(time.Now())
	}

	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = 10 * time.Second
	}
	statsInterval := cfg.StatsInterval
	if statsInterval <= 0 {
		statsInterval = 30 * time.Second
	}

	return &Pipeline{
		logger:        logger,
		source:        cfg.Source,
		parser:        packet.NewParser(),
		tracker:       flow.NewTracker(cfg.IdleTimeoutSeconds, cfg.MaxActiveFlows, stats),
		extract:       feature.NewExtractor(),
		engine:        rules.NewEngine(rules.DefaultRules(), &alert.IDGenerator{}),
		publisher:     cfg.Publisher,
		alertSink:     cfg.AlertSink,
		csvSink:       cfg.CSVSink,
		archival:      cfg.Archival,
		toggles:       cfg.Toggles,
		stats:         stats,
		sweepInterval: sweepInterval,
		statsInterval: statsInterval,
	}
}

// SetRuleEngine overrides the default ruleset, e.g. with rules loaded from
// a YAML file via rules.LoadFile.
func (p *Pipeline) SetRuleEngine(e *rules.Engine) { p.engine = e }

// Statistics returns the pipeline's running counters for a stats reporter
// or health endpoint.
func (p *Pipeline) Statistics() *alert.Statistics { return p.stats }

// Run drives the pipeline until ctx is cancelled or the capture source is
// exhausted (offline replay). It starts the sweep-ticker and
// stats-reporter goroutines, then blocks in the capture loop on the
// calling goroutine — matching spec.md §5's "single pipeline goroutine"
// requirement for the hot path itself.
func (p *Pipeline) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.wg.Add(1)
	go p.sweepLoop(runCtx)

	p.wg.Add(1)
	go p.statsLoop(runCtx)

	err := p.captureLoop(runCtx)
	cancel()

	p.wg.Wait()
	return err
}

func (p *Pipeline) captureLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := p.source.Next(ctx)
		if err != nil {
			if errors.Is(err, capture.ErrEndOfStream) || errors.Is(err, context.Canceled) {
				return nil
			}
			p.logger.Error("capture source error", zap.Error(err))
			return err
		}

		p.processFrame(frame)
	}
}

func (p *Pipeline) processFrame(frame capture.Frame) {
	pkt, err := p.parser.Parse(frame.Bytes, frame.TimestampMicros)
	if err != nil {
		p.stats.ParseErrors.Add(1)
		return
	}
	p.stats.RecordPacket(pkt.IP.Protocol, pkt.WireLen)

	if p.toggles.Decode && len(pkt.Payload) > 0 {
		p.decodeApplicationLayer(pkt)
	}

	var flowStats *flow.Stats
	if p.toggles.Track {
		flowStats = p.tracker.Update(pkt)
	}

	if p.toggles.Extract && flowStats != nil {
		v := p.extract.Extract(flowStats, pkt)
		if p.publisher != nil {
			if err := p.publisher.Publish(v); err != nil {
				p.logger.Warn("feature publish failed", zap.Error(err))
			}
		}
		if p.csvSink != nil {
			if err := p.csvSink.Write(v); err != nil {
				p.logger.Warn("csv export write failed", zap.Error(err))
			}
		}
		if p.archival != nil {
			p.archival.WriteFeatureVector(flowStats.Key.String(), v)
		}
	}

	if p.toggles.Rules {
		alerts := p.engine.Evaluate(pkt, time.Now())
		for _, a := range alerts {
			p.stats.RecordAlert(a.Severity)
			if p.alertSink != nil {
				if err := p.alertSink.Write(a); err != nil {
					p.logger.Warn("alert sink write failed", zap.Error(err))
				}
			}
			if p.archival != nil {
				p.archival.WriteAlert(a)
			}
		}
	}
}

// decodeApplicationLayer runs the optional HTTP/DNS decoders for
// visibility only; failures increment a counter but never interrupt the
// pipeline (spec.md §4.3).
func (p *Pipeline) decodeApplicationLayer(pkt *packet.ParsedPacket) {
	switch {
	case pkt.HasTCP && decode.LooksLikeHTTP(pkt.Payload):
		if _, ok := decode.DecodeHTTP(pkt.Payload); !ok {
			p.stats.DecodeErrors.Add(1)
		}
	case pkt.HasUDP && (pkt.UDP.SrcPort == 53 || pkt.UDP.DstPort == 53):
		if _, ok := decode.DecodeDNS(pkt.Payload); !ok {
			p.stats.DecodeErrors.Add(1)
		}
	}
}

func (p *Pipeline) sweepLoop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tracker.Sweep(time.Now())
		}
	}
}

func (p *Pipeline) statsLoop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := p.stats.Snapshot(time.Now())
			p.logger.Info("pipeline statistics",
				zap.Uint64("total_packets", snap.TotalPackets),
				zap.Uint64("alerts_total", snap.AlertsTotal),
				zap.Float64("packets_per_sec", snap.PacketsPerSec),
				zap.Float64("mbps", snap.Mbps),
				zap.Int("active_flows", p.tracker.Len()),
			)
		}
	}
}

// Close releases the capture source and every owned sink.
func (p *Pipeline) Close() error {
	err := p.source.Close()
	if p.publisher != nil {
		p.publisher.Close()
	}
	if p.alertSink != nil {
		p.alertSink.Close()
	}
	if p.csvSink != nil {
		p.csvSink.Close()
	}
	if p.archival != nil {
		p.archival.Close()
	}
	return err
}
