package feature

import (
	"math"

	"github.com/netweaver/nidcore/internal/flow"
	"github.com/netweaver/nidcore/internal/packet"
)

// bulkPacketThreshold and the behaviors below follow spec.md §4.5's bulk
// approximation rule: a direction needs >= 4 packets and duration > 0 to
// contribute non-zero bulk features.
const bulkPacketThreshold = 4

// Extractor computes Vectors from flow state. It is stateless and
// side-effect-free, matching spec.md §4.5's determinism requirement:
// repeated calls against the same (already-refreshed) flow yield
// identical vectors.
type Extractor struct{}

// NewExtractor returns a ready-to-use Extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Extract computes the FeatureVector for a flow, given the latest packet
// that updated it (used only for src/dst port and protocol annotation —
// spec.md's schema carries these as informational, not as aggregates).
func (e *Extractor) Extract(f *flow.Stats, pkt *packet.ParsedPacket) *Vector {
	f.UpdateComputedFeatures()

	v := &Vector{}
	duration := f.DurationSeconds()
	v.Duration = duration

	fwdPackets := float64(f.Forward.Packets)
	bwdPackets := float64(f.Backward.Packets)
	fwdBytes := float64(f.Forward.Bytes)
	bwdBytes := float64(f.Backward.Bytes)
	totalPackets := fwdPackets + bwdPackets
	totalBytes := fwdBytes + bwdBytes

	v.TotalFwdPackets = fwdPackets
	v.TotalBwdPackets = bwdPackets
	v.TotalLengthFwdPackets = fwdBytes
	v.TotalLengthBwdPackets = bwdBytes
	v.TotalPackets = totalPackets

	v.FwdPacketLengthMax = f.Forward.LengthMax()
	v.FwdPacketLengthMin = f.Forward.LengthMin()
	v.FwdPacketLengthMean = f.Forward.LengthMean()
	v.FwdPacketLengthStd = f.Forward.LengthStd()
	v.BwdPacketLengthMax = f.Backward.LengthMax()
	v.BwdPacketLengthMin = f.Backward.LengthMin()
	v.BwdPacketLengthMean = f.Backward.LengthMean()
	v.BwdPacketLengthStd = f.Backward.LengthStd()

	if duration > 0 {
		v.FlowBytesPerSec = totalBytes / duration
		v.FlowPacketsPerSec = totalPackets / duration
		v.FwdPacketsPerSec = fwdPackets / duration
		v.BwdPacketsPerSec = bwdPackets / duration
	}

	v.FlowIATMean = f.FlowIATMean()
	v.FlowIATStd = f.FlowIATStd()
	v.FlowIATMax = f.FlowIATMax()
	v.FlowIATMin = f.FlowIATMin()

	v.FwdIATTotal = f.Forward.IATSum()
	v.FwdIATMean = f.Forward.IATMean()
	v.FwdIATStd = f.Forward.IATStd()
	v.FwdIATMax = f.Forward.IATMax()
	v.FwdIATMin = f.Forward.IATMin()

	v.BwdIATTotal = f.Backward.IATSum()
	v.BwdIATMean = f.Backward.IATMean()
	v.BwdIATStd = f.Backward.IATStd()
	v.BwdIATMax = f.Backward.IATMax()
	v.BwdIATMin = f.Backward.IATMin()

	v.FwdPSHFlags = float64(f.Flags.PSH)
	v.BwdPSHFlags = 0 // direction-split PSH/URG are not tracked separately; see DESIGN.md
	v.FwdURGFlags = float64(f.Flags.URG)
	v.BwdURGFlags = 0

	v.FINFlagCount = float64(f.Flags.FIN)
	v.SYNFlagCount = float64(f.Flags.SYN)
	v.RSTFlagCount = float64(f.Flags.RST)
	v.PSHFlagCount = float64(f.Flags.PSH)
	v.ACKFlagCount = float64(f.Flags.ACK)
	v.URGFlagCount = float64(f.Flags.URG)

	if fwdBytes > 0 {
		v.DownUpRatio = bwdBytes / fwdBytes
	}
	if totalPackets > 0 {
		v.AveragePacketSize = totalBytes / totalPackets
	}
	if fwdPackets > 0 {
		v.AvgFwdSegmentSize = fwdBytes / fwdPackets
	}
	if bwdPackets > 0 {
		v.AvgBwdSegmentSize = bwdBytes / bwdPackets
	}

	// Packet-length aggregate over the concatenation of both directional
	// length samples (spec.md §4.5).
	combinedMin, combinedMax, combinedMean, combinedStd, combinedVar := combinedLengthStats(f)
	v.MinPacketLength = combinedMin
	v.MaxPacketLength = combinedMax
	v.PacketLengthMean = combinedMean
	v.PacketLengthStd = combinedStd
	v.PacketLengthVariance = combinedVar

	v.FwdAvgBytesBulk, v.FwdAvgPacketsBulk, v.FwdAvgBulkRate = bulkFeatures(f.Forward.Packets, f.Forward.Bytes, duration)
	v.BwdAvgBytesBulk, v.BwdAvgPacketsBulk, v.BwdAvgBulkRate = bulkFeatures(f.Backward.Packets, f.Backward.Bytes, duration)

	// Subflow features equal full-flow counts in this revision (spec.md §4.5).
	v.SubflowFwdPackets = fwdPackets
	v.SubflowFwdBytes = fwdBytes
	v.SubflowBwdPackets = bwdPackets
	v.SubflowBwdBytes = bwdBytes

	v.FwdHeaderLength = f.Forward.HeaderBytes()
	v.BwdHeaderLength = f.Backward.HeaderBytes()
	v.FwdHeaderLength2 = v.FwdHeaderLength

	v.InitWinBytesForward = f.Forward.InitWindow()
	v.InitWinBytesBackward = f.Backward.InitWindow()
	v.ActDataPktFwd = f.Forward.DataPackets()
	v.MinSegSizeForward = f.Forward.MinSegSize()

	// Active/idle sample vectors are not separately retained in this
	// revision (no cross-packet burst/idle-window tracker is specified);
	// they default to 0, matching spec.md §4.5's fallback rule.

	v.SrcPort = float64(pkt.SrcPort())
	v.DstPort = float64(pkt.DstPort())
	v.Protocol = float64(pkt.IP.Protocol)

	return v
}

// combinedLengthStats merges the forward and backward packet-length
// reservoirs to compute the flow-wide min/max/mean/std/variance required
// by spec.md §4.5. Falling back to reservoir-merge (rather than a third
// Welford accumulator) is acceptable here because spec.md only requires
// these aggregates be consistent with the directional ones to the same
// reservoir-bounded tolerance already accepted elsewhere.
func combinedLengthStats(f *flow.Stats) (min, max, mean, std, variance float64) {
	fwd := f.Forward.LengthValues()
	bwd := f.Backward.LengthValues()
	all := make([]float64, 0, len(fwd)+len(bwd))
	all = append(all, fwd...)
	all = append(all, bwd...)

	n := len(all)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}

	min, max = all[0], all[0]
	var sum float64
	for _, x := range all {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
		sum += x
	}
	mean = sum / float64(n)

	if n < 2 {
		return min, max, mean, 0, 0
	}
	var sumSq float64
	for _, x := range all {
		d := x - mean
		sumSq += d * d
	}
	variance = sumSq / float64(n-1)
	std = math.Sqrt(variance)
	return min, max, mean, std, variance
}

// bulkFeatures implements spec.md §4.5's bulk-transfer approximation:
// when a direction has >= 4 packets and duration > 0, bulk_rate =
// bytes/duration, bulk_size = avg_segment_size, bulk_packets =
// packets/4; otherwise all three are 0.
func bulkFeatures(packets, bytes uint64, duration float64) (avgBytesBulk, avgPacketsBulk, avgBulkRate float64) {
	if packets < bulkPacketThreshold || duration <= 0 {
		return 0, 0, 0
	}
	avgBytesBulk = float64(bytes) / float64(packets)
	avgPacketsBulk = float64(packets) / bulkPacketThreshold
	avgBulkRate = float64(bytes) / duration
	return
}
