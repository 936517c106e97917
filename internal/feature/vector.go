// Package feature computes the fixed-schema statistical FeatureVector
// described in spec.md §3/§4.5 from a flow.Stats snapshot.
package feature

// Header is the canonical, ordered field list — the external CSV/JSON
// contract of spec.md §6. Field order here IS the field order on the
// wire; do not reorder without a compatibility note.
var Header = []string{
	"duration",
	"total_fwd_packets",
	"total_bwd_packets",
	"total_length_fwd_packets",
	"total_length_bwd_packets",
	"fwd_packet_length_max",
	"fwd_packet_length_min",
	"fwd_packet_length_mean",
	"fwd_packet_length_std",
	"bwd_packet_length_max",
	"bwd_packet_length_min",
	"bwd_packet_length_mean",
	"bwd_packet_length_std",
	"flow_bytes_per_sec",
	"flow_packets_per_sec",
	"flow_iat_mean",
	"flow_iat_std",
	"flow_iat_max",
	"flow_iat_min",
	"fwd_iat_total",
	"fwd_iat_mean",
	"fwd_iat_std",
	"fwd_iat_max",
	"fwd_iat_min",
	"bwd_iat_total",
	"bwd_iat_mean",
	"bwd_iat_std",
	"bwd_iat_max",
	"bwd_iat_min",
	"fwd_psh_flags",
	"bwd_psh_flags",
	"fwd_urg_flags",
	"bwd_urg_flags",
	"fwd_header_length",
	"bwd_header_length",
	"fwd_packets_per_sec",
	"bwd_packets_per_sec",
	"min_packet_length",
	"max_packet_length",
	"packet_length_mean",
	"packet_length_std",
	"packet_length_variance",
	"fin_flag_count",
	"syn_flag_count",
	"rst_flag_count",
	"psh_flag_count",
	"ack_flag_count",
	"urg_flag_count",
	"down_up_ratio",
	"average_packet_size",
	"avg_fwd_segment_size",
	"avg_bwd_segment_size",
	"fwd_header_length_2",
	"fwd_avg_bytes_bulk",
	"fwd_avg_packets_bulk",
	"fwd_avg_bulk_rate",
	"bwd_avg_bytes_bulk",
	"bwd_avg_packets_bulk",
	"bwd_avg_bulk_rate",
	"subflow_fwd_packets",
	"subflow_fwd_bytes",
	"subflow_bwd_packets",
	"subflow_bwd_bytes",
	"init_win_bytes_forward",
	"init_win_bytes_backward",
	"act_data_pkt_fwd",
	"min_seg_size_forward",
	"active_mean",
	"active_std",
	"active_max",
	"active_min",
	"idle_mean",
	"idle_std",
	"idle_max",
	"idle_min",
	"src_port",
	"dst_port",
	"protocol",
	"total_packets",
}

// NumFields is len(Header); Vector.Values() always returns exactly this
// many entries, in Header order.
const NumFields = 79

func init() {
	if len(Header) != NumFields {
		panic("feature: Header length does not match NumFields")
	}
}

// Vector is the record described by Header. All values are
// finite real numbers; an absent statistic (empty sample) is 0, per
// spec.md §3.
type Vector struct {
	Duration float64

	TotalFwdPackets        float64
	TotalBwdPackets        float64
	TotalLengthFwdPackets  float64
	TotalLengthBwdPackets  float64
	FwdPacketLengthMax     float64
	FwdPacketLengthMin     float64
	FwdPacketLengthMean    float64
	FwdPacketLengthStd     float64
	BwdPacketLengthMax     float64
	BwdPacketLengthMin     float64
	BwdPacketLengthMean    float64
	BwdPacketLengthStd     float64

	FlowBytesPerSec   float64
	FlowPacketsPerSec float64

	FlowIATMean float64
	FlowIATStd  float64
	FlowIATMax  float64
	FlowIATMin  float64

	FwdIATTotal float64
	FwdIATMean  float64
	FwdIATStd   float64
	FwdIATMax   float64
	FwdIATMin   float64

	BwdIATTotal float64
	BwdIATMean  float64
	BwdIATStd   float64
	BwdIATMax   float64
	BwdIATMin   float64

	FwdPSHFlags float64
	BwdPSHFlags float64
	FwdURGFlags float64
	BwdURGFlags float64

	FwdHeaderLength float64
	BwdHeaderLength float64

	FwdPacketsPerSec float64
	BwdPacketsPerSec float64

	MinPacketLength      float64
	MaxPacketLength      float64
	PacketLengthMean     float64
	PacketLengthStd      float64
	PacketLengthVariance float64

	FINFlagCount float64
	SYNFlagCount float64
	RSTFlagCount float64
	PSHFlagCount float64
	ACKFlagCount float64
	URGFlagCount float64

	DownUpRatio        float64
	AveragePacketSize  float64
	AvgFwdSegmentSize  float64
	AvgBwdSegmentSize  float64
	FwdHeaderLength2   float64

	FwdAvgBytesBulk   float64
	FwdAvgPacketsBulk float64
	FwdAvgBulkRate    float64
	BwdAvgBytesBulk   float64
	BwdAvgPacketsBulk float64
	BwdAvgBulkRate    float64

	SubflowFwdPackets float64
	SubflowFwdBytes   float64
	SubflowBwdPackets float64
	SubflowBwdBytes   float64

	InitWinBytesForward  float64
	InitWinBytesBackward float64
	ActDataPktFwd        float64
	MinSegSizeForward    float64

	ActiveMean float64
	ActiveStd  float64
	ActiveMax  float64
	ActiveMin  float64
	IdleMean   float64
	IdleStd    float64
	IdleMax    float64
	IdleMin    float64

	SrcPort      float64
	DstPort      float64
	Protocol     float64
	TotalPackets float64
}

// Values returns the vector's NumFields (79) values in Header order, for CSV/JSON
// serialization.
func (v *Vector) Values() []float64 {
	return []float64{
		v.Duration,
		v.TotalFwdPackets,
		v.TotalBwdPackets,
		v.TotalLengthFwdPackets,
		v.TotalLengthBwdPackets,
		v.FwdPacketLengthMax,
		v.FwdPacketLengthMin,
		v.FwdPacketLengthMean,
		v.FwdPacketLengthStd,
		v.BwdPacketLengthMax,
		v.BwdPacketLengthMin,
		v.BwdPacketLengthMean,
		v.BwdPacketLengthStd,
		v.FlowBytesPerSec,
		v.FlowPacketsPerSec,
		v.FlowIATMean,
		v.FlowIATStd,
		v.FlowIATMax,
		v.FlowIATMin,
		v.FwdIATTotal,
		v.FwdIATMean,
		v.FwdIATStd,
		v.FwdIATMax,
		v.FwdIATMin,
		v.BwdIATTotal,
		v.BwdIATMean,
		v.BwdIATStd,
		v.BwdIATMax,
		v.BwdIATMin,
		v.FwdPSHFlags,
		v.BwdPSHFlags,
		v.FwdURGFlags,
		v.BwdURGFlags,
		v.FwdHeaderLength,
		v.BwdHeaderLength,
		v.FwdPacketsPerSec,
		v.BwdPacketsPerSec,
		v.MinPacketLength,
		v.MaxPacketLength,
		v.PacketLengthMean,
		v.PacketLengthStd,
		v.PacketLengthVariance,
		v.FINFlagCount,
		v.SYNFlagCount,
		v.RSTFlagCount,
		v.PSHFlagCount,
		v.ACKFlagCount,
		v.URGFlagCount,
		v.DownUpRatio,
		v.AveragePacketSize,
		v.AvgFwdSegmentSize,
		v.AvgBwdSegmentSize,
		v.FwdHeaderLength2,
		v.FwdAvgBytesBulk,
		v.FwdAvgPacketsBulk,
		v.FwdAvgBulkRate,
		v.BwdAvgBytesBulk,
		v.BwdAvgPacketsBulk,
		v.BwdAvgBulkRate,
		v.SubflowFwdPackets,
		v.SubflowFwdBytes,
		v.SubflowBwdPackets,
		v.SubflowBwdBytes,
		v.InitWinBytesForward,
		v.InitWinBytesBackward,
		v.ActDataPktFwd,
		v.MinSegSizeForward,
		v.ActiveMean,
		v.ActiveStd,
		v.ActiveMax,
		v.ActiveMin,
		v.IdleMean,
		v.IdleStd,
		v.IdleMax,
		v.IdleMin,
		v.SrcPort,
		v.DstPort,
		v.Protocol,
		v.TotalPackets,
	}
}
