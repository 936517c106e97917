package feature

import (
	"fmt"
	"strconv"
	"strings"
)

// CSVHeader renders the canonical header line, per spec.md §6.
func CSVHeader() string {
	return strings.Join(Header, ",")
}

// CSVRow renders v as one CSV line, six-decimal precision per spec.md §6.
func (v *Vector) CSVRow() string {
	values := v.Values()
	parts := make([]string, len(values))
	for i, x := range values {
		parts[i] = strconv.FormatFloat(x, 'f', 6, 64)
	}
	return strings.Join(parts, ",")
}

// ParseCSVRow parses a single CSV row produced by CSVRow back into a
// Vector, used by the round-trip test in spec.md §8. It assumes the
// canonical field order and does not need the header line to validate.
func ParseCSVRow(row string) (*Vector, error) {
	fields := strings.Split(row, ",")
	if len(fields) != NumFields {
		return nil, fmt.Errorf("feature: expected %d fields, got %d", NumFields, len(fields))
	}
	values := make([]float64, NumFields)
	for i, f := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("feature: field %d (%s): %w", i, Header[i], err)
		}
		values[i] = x
	}
	return fromValues(values), nil
}

func fromValues(values []float64) *Vector {
	v := &Vector{}
	v.Duration = values[0]
	v.TotalFwdPackets = values[1]
	v.TotalBwdPackets = values[2]
	v.TotalLengthFwdPackets = values[3]
	v.TotalLengthBwdPackets = values[4]
	v.FwdPacketLengthMax = values[5]
	v.FwdPacketLengthMin = values[6]
	v.FwdPacketLengthMean = values[7]
	v.FwdPacketLengthStd = values[8]
	v.BwdPacketLengthMax = values[9]
	v.BwdPacketLengthMin = values[10]
	v.BwdPacketLengthMean = values[11]
	v.BwdPacketLengthStd = values[12]
	v.FlowBytesPerSec = values[13]
	v.FlowPacketsPerSec = values[14]
	v.FlowIATMean = values[15]
	v.FlowIATStd = values[16]
	v.FlowIATMax = values[17]
	v.FlowIATMin = values[18]
	v.FwdIATTotal = values[19]
	v.FwdIATMean = values[20]
	v.FwdIATStd = values[21]
	v.FwdIATMax = values[22]
	v.FwdIATMin = values[23]
	v.BwdIATTotal = values[24]
	v.BwdIATMean = values[25]
	v.BwdIATStd = values[26]
	v.BwdIATMax = values[27]
	v.BwdIATMin = values[28]
	v.FwdPSHFlags = values[29]
	v.BwdPSHFlags = values[30]
	v.FwdURGFlags = values[31]
	v.BwdURGFlags = values[32]
	v.FwdHeaderLength = values[33]
	v.BwdHeaderLength = values[34]
	v.FwdPacketsPerSec = values[35]
	v.BwdPacketsPerSec = values[36]
	v.MinPacketLength = values[37]
	v.MaxPacketLength = values[38]
	v.PacketLengthMean = values[39]
	v.PacketLengthStd = values[40]
	v.PacketLengthVariance = values[41]
	v.FINFlagCount = values[42]
	v.SYNFlagCount = values[43]
	v.RSTFlagCount = values[44]
	v.PSHFlagCount = values[45]
	v.ACKFlagCount = values[46]
	v.URGFlagCount = values[47]
	v.DownUpRatio = values[48]
	v.AveragePacketSize = values[49]
	v.AvgFwdSegmentSize = values[50]
	v.AvgBwdSegmentSize = values[51]
	v.FwdHeaderLength2 = values[52]
	v.FwdAvgBytesBulk = values[53]
	v.FwdAvgPacketsBulk = values[54]
	v.FwdAvgBulkRate = values[55]
	v.BwdAvgBytesBulk = values[56]
	v.BwdAvgPacketsBulk = values[57]
	v.BwdAvgBulkRate = values[58]
	v.SubflowFwdPackets = values[59]
	v.SubflowFwdBytes = values[60]
	v.SubflowBwdPackets = values[61]
	v.SubflowBwdBytes = values[62]
	v.InitWinBytesForward = values[63]
	v.InitWinBytesBackward = values[64]
	v.ActDataPktFwd = values[65]
	v.MinSegSizeForward = values[66]
	v.ActiveMean = values[67]
	v.ActiveStd = values[68]
	v.ActiveMax = values[69]
	v.ActiveMin = values[70]
	v.IdleMean = values[71]
	v.IdleStd = values[72]
	v.IdleMax = values[73]
	v.IdleMin = values[74]
	v.SrcPort = values[75]
	v.DstPort = values[76]
	v.Protocol = values[77]
	v.TotalPackets = values[78]
	return v
}
