// Package alert defines the Alert and Statistics records shared by the rule
// engine, the publisher, and the alert sink.
package alert

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Severity is the rule-assigned urgency of an alert.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String renders the severity the way it appears in JSONL records and
// console output: lowercase, matching the schema in spec.md §6.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the severity as its lowercase string form.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// ParseSeverity parses the lowercase form produced by String, for rule
// files and config where severities are written by hand.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return 0, fmt.Errorf("alert: unknown severity %q", s)
	}
}

// Alert is emitted by the rule engine on a signature match. Alerts are
// append-only; once constructed, an Alert is never mutated.
type Alert struct {
	AlertID        uint64    `json:"alert_id"`
	Timestamp      time.Time `json:"timestamp"`
	RuleID         uint32    `json:"rule_id"`
	RuleName       string    `json:"rule_name"`
	Severity       Severity  `json:"severity"`
	PacketID       uint64    `json:"packet_id"`
	SrcIP          string    `json:"src_ip"`
	DstIP          string    `json:"dst_ip"`
	SrcPort        uint16    `json:"src_port"`
	DstPort        uint16    `json:"dst_port"`
	Protocol       string    `json:"protocol"`
	Description    string    `json:"description"`
	MatchedContent string    `json:"matched_content,omitempty"`
}

// IDGenerator hands out the monotone alert_id sequence required by spec.md
// §8 invariant 6. Safe for concurrent use, though the pipeline's single
// rule-engine goroutine is the only caller in this revision.
type IDGenerator struct {
	next atomic.Uint64
}

// Next returns the next alert ID, starting at 1.
func (g *IDGenerator) Next() uint64 {
	return g.next.Add(1)
}

// Statistics holds the engine-wide counters described in spec.md §3 and
// §6. All fields are accessed via atomic operations so the stats reporter
// goroutine can read them without taking a lock on the pipeline's hot path.
type Statistics struct {
	StartTime time.Time

	TotalPackets atomic.Uint64
	TotalBytes   atomic.Uint64

	TCPPackets   atomic.Uint64
	UDPPackets   atomic.Uint64
	ICMPPackets  atomic.Uint64
	OtherPackets atomic.Uint64

	ParseErrors  atomic.Uint64
	DecodeErrors atomic.Uint64

	AlertsTotal    atomic.Uint64
	AlertsLow      atomic.Uint64
	AlertsMedium   atomic.Uint64
	AlertsHigh     atomic.Uint64
	AlertsCritical atomic.Uint64

	PublisherOverflows atomic.Uint64
	ExpiredFlows       atomic.Uint64
	DroppedNewFlows    atomic.Uint64
}

// NewStatistics returns a zeroed Statistics with StartTime set to now.
func NewStatistics(now time.Time) *Statistics {
	return &Statistics{StartTime: now}
}

// IP protocol numbers relevant to statistics classification (spec.md §8
// invariant 5 requires a dedicated ICMP bucket even though ParsedPacket's
// protocol_name helper only distinguishes TCP/UDP/OTHER).
const (
	IPProtoICMP = 1
	IPProtoTCP  = 6
	IPProtoUDP  = 17
)

// RecordPacket updates the per-protocol and total counters for one parsed
// packet, classifying by the IPv4 protocol number so that
// TotalPackets == TCP+UDP+ICMP+Other always holds (spec.md §8 invariant 5).
func (s *Statistics) RecordPacket(ipProtocol uint8, wireLen int) {
	s.TotalPackets.Add(1)
	s.TotalBytes.Add(uint64(wireLen))
	switch ipProtocol {
	case IPProtoTCP:
		s.TCPPackets.Add(1)
	case IPProtoUDP:
		s.UDPPackets.Add(1)
	case IPProtoICMP:
		s.ICMPPackets.Add(1)
	default:
		s.OtherPackets.Add(1)
	}
}

// RecordAlert updates the global and per-severity alert counters.
func (s *Statistics) RecordAlert(sev Severity) {
	s.AlertsTotal.Add(1)
	switch sev {
	case SeverityLow:
		s.AlertsLow.Add(1)
	case SeverityMedium:
		s.AlertsMedium.Add(1)
	case SeverityHigh:
		s.AlertsHigh.Add(1)
	case SeverityCritical:
		s.AlertsCritical.Add(1)
	}
}

// Snapshot is a point-in-time, non-atomic copy of Statistics suitable for
// logging or JSON serialization.
type Snapshot struct {
	StartTime      time.Time `json:"start_time"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	TotalPackets   uint64    `json:"total_packets"`
	TotalBytes     uint64    `json:"total_bytes"`
	TCPPackets     uint64    `json:"tcp_packets"`
	UDPPackets     uint64    `json:"udp_packets"`
	ICMPPackets    uint64    `json:"icmp_packets"`
	OtherPackets   uint64    `json:"other_packets"`
	ParseErrors    uint64    `json:"parse_errors"`
	DecodeErrors   uint64    `json:"decode_errors"`
	AlertsTotal    uint64    `json:"alerts_total"`
	AlertsLow      uint64    `json:"alerts_low"`
	AlertsMedium   uint64    `json:"alerts_medium"`
	AlertsHigh     uint64    `json:"alerts_high"`
	AlertsCritical uint64    `json:"alerts_critical"`
	PacketsPerSec  float64   `json:"packets_per_sec"`
	Mbps           float64   `json:"mbps"`
}

// Snapshot computes derived rates (packets/s, Mbps) since StartTime.
func (s *Statistics) Snapshot(now time.Time) Snapshot {
	elapsed := now.Sub(s.StartTime).Seconds()
	total := s.TotalPackets.Load()
	bytes := s.TotalBytes.Load()

	var pps, mbps float64
	if elapsed > 0 {
		pps = float64(total) / elapsed
		mbps = (float64(bytes) * 8 / 1_000_000) / elapsed
	}

	return Snapshot{
		StartTime:      s.StartTime,
		ElapsedSeconds: elapsed,
		TotalPackets:   total,
		TotalBytes:     bytes,
		TCPPackets:     s.TCPPackets.Load(),
		UDPPackets:     s.UDPPackets.Load(),
		ICMPPackets:    s.ICMPPackets.Load(),
		OtherPackets:   s.OtherPackets.Load(),
		ParseErrors:    s.ParseErrors.Load(),
		DecodeErrors:   s.DecodeErrors.Load(),
		AlertsTotal:    s.AlertsTotal.Load(),
		AlertsLow:      s.AlertsLow.Load(),
		AlertsMedium:   s.AlertsMedium.Load(),
		AlertsHigh:     s.AlertsHigh.Load(),
		AlertsCritical: s.AlertsCritical.Load(),
		PacketsPerSec:  pps,
		Mbps:           mbps,
	}
}
