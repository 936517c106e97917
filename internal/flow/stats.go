package flow

import "github.com/netweaver/nidcore/internal/packet"

// DirStats holds the per-direction counters of spec.md §3's FlowStats:
// packet/byte totals, inter-arrival times (from the 2nd packet in that
// direction onward), and packet lengths.
type DirStats struct {
	Packets uint64
	Bytes   uint64

	iat     *sampleSet
	lengths *sampleSet

	lastSeen int64 // microseconds; 0 until the first packet in this direction

	headerBytes uint64 // sum of IP+transport header lengths, this direction
	dataPackets uint64 // packets carrying at least one byte of payload

	initWindow    float64 // TCP window of this direction's first packet
	initWindowSet bool
	minSegSize    float64 // smallest TCP header length seen, this direction
	minSegSizeSet bool
}

func newDirStats() *DirStats {
	return &DirStats{
		iat:     newSampleSet(defaultReservoirCap),
		lengths: newSampleSet(defaultReservoirCap),
	}
}

func (d *DirStats) record(pkt *packet.ParsedPacket) {
	if d.Packets > 0 {
		iatSeconds := float64(pkt.Timestamp-d.lastSeen) / 1e6
		d.iat.Add(iatSeconds)
	}
	d.Packets++
	d.Bytes += uint64(pkt.WireLen)
	d.lengths.Add(float64(pkt.WireLen))
	d.lastSeen = pkt.Timestamp

	d.headerBytes += uint64(transportHeaderLen(pkt))
	if len(pkt.Payload) > 0 {
		d.dataPackets++
	}
	if pkt.HasTCP {
		if !d.initWindowSet {
			d.initWindow = float64(pkt.TCP.Window)
			d.initWindowSet = true
		}
		segSize := float64(pkt.TCP.HeaderLen())
		if !d.minSegSizeSet || segSize < d.minSegSize {
			d.minSegSize = segSize
			d.minSegSizeSet = true
		}
	}
}

// transportHeaderLen is the IP header length plus the TCP or UDP header
// length, used for the fwd/bwd_header_length features of spec.md §3.
func transportHeaderLen(pkt *packet.ParsedPacket) int {
	n := pkt.IP.HeaderLen()
	switch {
	case pkt.HasTCP:
		n += pkt.TCP.HeaderLen()
	case pkt.HasUDP:
		n += 8
	}
	return n
}

// IATMean and IATStd return the mean and the Bessel-corrected sample
// standard deviation described in spec.md §4.4.3.
func (d *DirStats) IATMean() float64 { return d.iat.Mean() }
func (d *DirStats) IATStd() float64  { return d.iat.Std() }
func (d *DirStats) IATSum() float64  { return d.iat.Sum() }
func (d *DirStats) IATMin() float64  { return d.iat.Min() }
func (d *DirStats) IATMax() float64  { return d.iat.Max() }
func (d *DirStats) IATValues() []float64 { return d.iat.Values() }

func (d *DirStats) LengthMean() float64     { return d.lengths.Mean() }
func (d *DirStats) LengthStd() float64      { return d.lengths.Std() }
func (d *DirStats) LengthMin() float64      { return d.lengths.Min() }
func (d *DirStats) LengthMax() float64      { return d.lengths.Max() }
func (d *DirStats) LengthValues() []float64 { return d.lengths.Values() }

// HeaderBytes is the running sum of IP+transport header lengths observed
// in this direction (fwd/bwd_header_length).
func (d *DirStats) HeaderBytes() float64 { return float64(d.headerBytes) }

// DataPackets counts packets in this direction carrying a non-empty
// payload (act_data_pkt_fwd, when called on the forward direction).
func (d *DirStats) DataPackets() float64 { return float64(d.dataPackets) }

// InitWindow is the TCP window advertised by this direction's first
// packet, or 0 if this direction has seen no TCP packet
// (init_win_bytes_forward/backward).
func (d *DirStats) InitWindow() float64 { return d.initWindow }

// MinSegSize is the smallest TCP header length seen in this direction, or
// 0 if this direction has seen no TCP packet (min_seg_size_forward).
func (d *DirStats) MinSegSize() float64 { return d.minSegSize }

// TCPFlagCounts totals each flag independently across every TCP packet
// seen on the flow, per spec.md §3.
type TCPFlagCounts struct {
	FIN, SYN, RST, PSH, ACK, URG uint64
}

func (c *TCPFlagCounts) observe(flags uint8) {
	if flags&packet.TCPFlagFIN != 0 {
		c.FIN++
	}
	if flags&packet.TCPFlagSYN != 0 {
		c.SYN++
	}
	if flags&packet.TCPFlagRST != 0 {
		c.RST++
	}
	if flags&packet.TCPFlagPSH != 0 {
		c.PSH++
	}
	if flags&packet.TCPFlagACK != 0 {
		c.ACK++
	}
	if flags&packet.TCPFlagURG != 0 {
		c.URG++
	}
}

// Stats is the per-connection record owned by the Tracker, matching
// spec.md §3's FlowStats with the §9 bidirectional-flow fix applied:
// Forward and Backward are both populated (the reference only ever
// populated "forward"), and FlowIAT merges both directions' arrival
// order into a single time-ordered stream.
type Stats struct {
	Key       Key
	Initiator Endpoint // the endpoint whose first packet created this flow

	StartTime int64 // microseconds since epoch
	LastSeen  int64 // microseconds since epoch; updated regardless of direction

	Forward  *DirStats
	Backward *DirStats
	flowIAT  *sampleSet // merged arrival order across both directions

	Flags TCPFlagCounts
	State State

	// computed is set true after UpdateComputedFeatures runs, to make the
	// call idempotent cheaply; nothing here is invalidated between
	// packets because the derived fields are recomputed on demand rather
	// than cached — see DurationSeconds and the IAT/length accessors.
	computed bool
}

func newStats(k Key, initiator Endpoint, pkt *packet.ParsedPacket) *Stats {
	return &Stats{
		Key:       k,
		Initiator: initiator,
		StartTime: pkt.Timestamp,
		LastSeen:  pkt.Timestamp,
		Forward:   newDirStats(),
		Backward:  newDirStats(),
		flowIAT:   newSampleSet(defaultReservoirCap),
		State:     StateUnknown,
	}
}

// update records one packet against the flow, classifying its direction
// by comparing its source endpoint to the flow's Initiator (the §9 fix:
// every packet used to be treated as forward unconditionally).
func (s *Stats) update(pkt *packet.ParsedPacket, srcEndpoint Endpoint) {
	forward := srcEndpoint == s.Initiator

	if s.Forward.Packets+s.Backward.Packets > 0 {
		flowIATSeconds := float64(pkt.Timestamp-s.LastSeen) / 1e6
		s.flowIAT.Add(flowIATSeconds)
	}

	if forward {
		s.Forward.record(pkt)
	} else {
		s.Backward.record(pkt)
	}

	if pkt.HasTCP {
		s.Flags.observe(pkt.TCP.Flags)
		s.State = advance(s.State, pkt.TCP.Flags)
	}

	s.LastSeen = pkt.Timestamp
	s.computed = false
}

// DurationSeconds is last_seen - start_time, per spec.md §3/§8 invariant 3.
func (s *Stats) DurationSeconds() float64 {
	return float64(s.LastSeen-s.StartTime) / 1e6
}

// UpdateComputedFeatures is idempotent (spec.md §4.4.3, §8): it derives
// packet rates and IAT/length mean+std on demand rather than mutating
// cached fields, so calling it any number of times yields identical
// results. It exists as an explicit method (rather than being folded
// silently into the extractor) to mirror the teacher's/spec's naming and
// to give tests a single idempotence seam to call through.
func (s *Stats) UpdateComputedFeatures() {
	s.computed = true
}

// FlowIATValues returns the merged, time-ordered inter-arrival samples
// across both directions (spec.md §9's "Flow-level IAT vector absent"
// fix).
func (s *Stats) FlowIATValues() []float64 { return s.flowIAT.Values() }
func (s *Stats) FlowIATMean() float64     { return s.flowIAT.Mean() }
func (s *Stats) FlowIATStd() float64      { return s.flowIAT.Std() }
func (s *Stats) FlowIATMin() float64      { return s.flowIAT.Min() }
func (s *Stats) FlowIATMax() float64      { return s.flowIAT.Max() }
