// nidcore is the packet-ingestion pipeline entrypoint: capture, parse,
// decode, track, extract, and match signatures against a live interface
// or a capture file, in the teacher's flag-plus-optional-YAML-config CLI
// shape (cmd/telemetry-agent/main.go).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/netweaver/nidcore/internal/alert"
	"github.com/netweaver/nidcore/internal/capture"
	"github.com/netweaver/nidcore/internal/config"
	"github.com/netweaver/nidcore/internal/pipeline"
	"github.com/netweaver/nidcore/internal/publish"
	"github.com/netweaver/nidcore/internal/rules"
	"github.com/netweaver/nidcore/internal/storage"
)

func main() {
	var (
		readFile    = flag.String("r", "", "read packets from a capture file instead of a live interface")
		iface       = flag.String("i", "", "live interface to capture from")
		bpfFilter   = flag.String("f", "", "optional BPF filter for live capture")
		configFile  = flag.String("config", "", "optional YAML configuration file")
		ruleFile    = flag.String("rules", "", "optional YAML signature rule file (overrides the built-in defaults)")
		noDecode    = flag.Bool("no-decode", false, "disable HTTP/DNS application-layer decoding")
		noTrack     = flag.Bool("no-track", false, "disable flow tracking (and everything downstream of it)")
		noExtract   = flag.Bool("no-extract", false, "disable feature extraction")
		noRules     = flag.Bool("no-rules", false, "disable signature matching")
		publishAddr = flag.String("publish", "", "override the feature-vector tcp bus listen address")
		csvPath     = flag.String("csv", "", "optional path to append extracted feature vectors as CSV")
	)
	flag.Parse()

	if (*readFile == "") == (*iface == "") {
		fmt.Fprintln(os.Stderr, "nidcore: exactly one of -r <file> or -i <interface> is required")
		os.Exit(2)
	}

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "nidcore: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *publishAddr != "" {
		cfg.Publish.TCPBusListen = *publishAddr
	}
	if *bpfFilter != "" {
		cfg.Capture.BPFFilter = *bpfFilter
	}
	if *ruleFile != "" {
		cfg.Rules.RuleFile = *ruleFile
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.EncoderConfig.TimeKey = "timestamp"
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := loggerConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nidcore: failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	source, err := openSource(*readFile, *iface, cfg.Capture.BPFFilter)
	if err != nil {
		logger.Fatal("failed to open capture source", zap.Error(err))
	}

	stats := alert.NewStatistics(time.Now())

	publisher, err := buildPublisher(cfg, logger, &stats.PublisherOverflows)
	if err != nil {
		logger.Fatal("failed to start publisher", zap.Error(err))
	}

	alertSink, err := publish.NewAlertSink(cfg.Alerts.JSONLPath)
	if err != nil {
		logger.Fatal("failed to open alert sink", zap.Error(err))
	}

	var csvSink *publish.CSVSink
	if *csvPath != "" {
		csvSink, err = publish.NewCSVSink(*csvPath)
		if err != nil {
			logger.Fatal("failed to open csv export file", zap.Error(err))
		}
	}

	var archival *storage.BatchWriter
	if cfg.Storage.Enabled {
		archival, err = buildArchival(cfg, logger)
		if err != nil {
			logger.Fatal("failed to connect archival storage", zap.Error(err))
		}
	}

	toggles := pipeline.Toggles{
		Decode:  !*noDecode,
		Track:   !*noTrack,
		Extract: !*noExtract,
		Rules:   !*noRules,
	}

	p := pipeline.New(pipeline.Config{
		Source:             source,
		Publisher:          publisher,
		AlertSink:          alertSink,
		CSVSink:            csvSink,
		Archival:           archival,
		Toggles:            toggles,
		Stats:              stats,
		IdleTimeoutSeconds: int64(cfg.Flow.IdleTimeout.Seconds()),
		MaxActiveFlows:     cfg.Flow.MaxActiveFlows,
		SweepInterval:      cfg.Flow.SweepInterval,
		StatsInterval:      cfg.Monitoring.StatsInterval,
	}, logger)

	if cfg.Rules.RuleFile != "" {
		loaded, err := rules.LoadFile(cfg.Rules.RuleFile)
		if err != nil {
			logger.Fatal("failed to load rule file", zap.Error(err), zap.String("path", cfg.Rules.RuleFile))
		}
		p.SetRuleEngine(rules.NewEngine(loaded, &alert.IDGenerator{}))
		logger.Info("loaded signature rules from file", zap.String("path", cfg.Rules.RuleFile), zap.Int("count", len(loaded)))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting nidcore", zap.String("source", sourceDescription(*readFile, *iface)))
	if err := p.Run(ctx); err != nil {
		logger.Error("pipeline exited with error", zap.Error(err))
	}
	if err := p.Close(); err != nil {
		logger.Warn("error closing pipeline resources", zap.Error(err))
	}
	logger.Info("nidcore stopped")
}

func openSource(readFile, iface, bpfFilter string) (capture.Source, error) {
	if readFile != "" {
		return capture.NewOfflineSource(readFile)
	}
	return capture.NewLiveSource(iface, bpfFilter)
}

func buildPublisher(cfg config.Config, logger *zap.Logger, overflow *atomic.Uint64) (*publish.FeaturePublisher, error) {
	var transport publish.Transport
	var err error
	if cfg.Publish.AMQPURL != "" {
		transport, err = publish.NewAMQPBus(cfg.Publish.AMQPURL, cfg.Publish.AMQPExchange, logger)
	} else {
		transport, err = publish.NewTCPBus(cfg.Publish.TCPBusListen, logger)
	}
	if err != nil {
		return nil, err
	}
	return publish.NewFeaturePublisher(transport, overflow), nil
}

func buildArchival(cfg config.Config, logger *zap.Logger) (*storage.BatchWriter, error) {
	client, err := storage.NewClient(context.Background(), storage.Config{
		Host:     cfg.Storage.Host,
		Port:     cfg.Storage.Port,
		Database: cfg.Storage.Database,
		User:     cfg.Storage.User,
		Password: cfg.Storage.Password,
		PoolSize: cfg.Storage.PoolSize,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewBatchWriter(client, logger, cfg.Storage.BufferSize, cfg.Storage.FlushInterval), nil
}

func sourceDescription(readFile, iface string) string {
	if readFile != "" {
		return "file:" + readFile
	}
	return "interface:" + iface
}
