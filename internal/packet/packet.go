// Package packet parses Ethernet/IPv4/TCP/UDP frames into a zero-copy
// ParsedPacket view, the way NetWeaver's netflow and sflow packages parse
// their own wire formats: fixed struct layouts, explicit byte offsets, and
// big-endian field reads via encoding/binary, with no intermediate copies.
package packet

import (
	"encoding/binary"
	"fmt"
	"net"
)

// EtherType and IP protocol numbers this parser recognizes.
const (
	EtherTypeIPv4 = 0x0800

	ProtoICMP = 1
	ProtoTCP  = 6
	ProtoUDP  = 17
)

// TCP flag bits, as they appear in the 6 low bits of the flags octet.
const (
	TCPFlagFIN uint8 = 1 << 0
	TCPFlagSYN uint8 = 1 << 1
	TCPFlagRST uint8 = 1 << 2
	TCPFlagPSH uint8 = 1 << 3
	TCPFlagACK uint8 = 1 << 4
	TCPFlagURG uint8 = 1 << 5
)

const (
	ethernetHeaderLen = 14
	ipv4MinHeaderLen  = 20
	tcpMinHeaderLen   = 20
	udpHeaderLen      = 8
	minFrameLen       = ethernetHeaderLen + ipv4MinHeaderLen
)

// EthernetHeader is the 14-byte link-layer header.
type EthernetHeader struct {
	DstMAC    net.HardwareAddr
	SrcMAC    net.HardwareAddr
	EtherType uint16
}

// IPv4Header mirrors the wire layout of an IPv4 header (options excluded;
// option bytes are skipped via HeaderLen but not separately parsed).
type IPv4Header struct {
	VersionIHL  uint8
	TOS         uint8
	TotalLength uint16
	ID          uint16
	FlagsFrag   uint16
	TTL         uint8
	Protocol    uint8
	Checksum    uint16
	SrcIP       net.IP
	DstIP       net.IP
}

// Version returns the 4-bit IP version field.
func (h IPv4Header) Version() uint8 { return h.VersionIHL >> 4 }

// HeaderLen returns the header length in bytes (IHL * 4).
func (h IPv4Header) HeaderLen() int { return int(h.VersionIHL&0x0F) * 4 }

// TCPHeader mirrors the fixed 20-byte portion of a TCP header.
type TCPHeader struct {
	SrcPort    uint16
	DstPort    uint16
	SeqNum     uint32
	AckNum     uint32
	DataOffset uint8 // in 32-bit words
	Flags      uint8
	Window     uint16
	Checksum   uint16
	UrgentPtr  uint16
}

// HeaderLen returns the TCP header length in bytes (DataOffset * 4).
func (h TCPHeader) HeaderLen() int { return int(h.DataOffset) * 4 }

// UDPHeader mirrors the fixed 8-byte UDP header.
type UDPHeader struct {
	SrcPort  uint16
	DstPort  uint16
	Length   uint16
	Checksum uint16
}

// ParsedPacket is an immutable, zero-copy view over a captured frame. Its
// Payload slice aliases the original frame buffer; callers must not retain
// a ParsedPacket (or its Payload) past the capture source's next pull, per
// spec.md §3's Frame lifetime rule.
type ParsedPacket struct {
	PacketID  uint64
	Timestamp int64 // microseconds since epoch, per spec.md §3
	WireLen   int   // total captured length, for byte accounting

	Ethernet EthernetHeader
	IP       IPv4Header

	HasTCP bool
	TCP    TCPHeader
	HasUDP bool
	UDP    UDPHeader

	Payload []byte
}

// SrcIP renders the source address in dotted-quad form.
func (p *ParsedPacket) SrcIP() string { return p.IP.SrcIP.String() }

// DstIP renders the destination address in dotted-quad form.
func (p *ParsedPacket) DstIP() string { return p.IP.DstIP.String() }

// SrcPort returns the transport source port, or 0 if neither TCP nor UDP.
func (p *ParsedPacket) SrcPort() uint16 {
	switch {
	case p.HasTCP:
		return p.TCP.SrcPort
	case p.HasUDP:
		return p.UDP.SrcPort
	default:
		return 0
	}
}

// DstPort returns the transport destination port, or 0 if neither TCP nor UDP.
func (p *ParsedPacket) DstPort() uint16 {
	switch {
	case p.HasTCP:
		return p.TCP.DstPort
	case p.HasUDP:
		return p.UDP.DstPort
	default:
		return 0
	}
}

// ProtocolName returns "TCP", "UDP", or "OTHER" per spec.md §3's helper
// projection — this is distinct from Statistics' ICMP bucket, which
// classifies by the raw IP protocol number instead.
func (p *ParsedPacket) ProtocolName() string {
	switch {
	case p.HasTCP:
		return "TCP"
	case p.HasUDP:
		return "UDP"
	default:
		return "OTHER"
	}
}

// ParseError is returned for any frame that fails the validity invariant
// of spec.md §3(a): it must parse through Ethernet (ethertype IPv4) and
// IPv4 (version 4).
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "packet: " + e.Reason }

// Parser decodes raw frames into ParsedPacket values and tracks the
// monotone packet_id sequence and parse counters, mirroring the
// Parser/NewParser/GetStatistics shape of netflow.Parser and sflow.Parser.
type Parser struct {
	nextPacketID uint64
	parsed       uint64
	parseErrors  uint64
}

// NewParser creates a Parser with its packet_id sequence starting at 1.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes one frame. data must be the raw captured bytes (no copy is
// made); the returned ParsedPacket's Payload aliases data directly.
// timestampMicros is the frame's capture timestamp in microseconds since
// epoch (spec.md §3).
func (p *Parser) Parse(data []byte, timestampMicros int64) (*ParsedPacket, error) {
	if len(data) < minFrameLen {
		p.parseErrors++
		return nil, &ParseError{Reason: fmt.Sprintf("frame too short: %d bytes", len(data))}
	}

	eth := EthernetHeader{
		DstMAC:    net.HardwareAddr(data[0:6]),
		SrcMAC:    net.HardwareAddr(data[6:12]),
		EtherType: binary.BigEndian.Uint16(data[12:14]),
	}
	if eth.EtherType != EtherTypeIPv4 {
		p.parseErrors++
		return nil, &ParseError{Reason: fmt.Sprintf("unsupported ethertype: 0x%04x", eth.EtherType)}
	}

	ipData := data[ethernetHeaderLen:]
	if len(ipData) < ipv4MinHeaderLen {
		p.parseErrors++
		return nil, &ParseError{Reason: "truncated IPv4 header"}
	}

	ip := IPv4Header{
		VersionIHL:  ipData[0],
		TOS:         ipData[1],
		TotalLength: binary.BigEndian.Uint16(ipData[2:4]),
		ID:          binary.BigEndian.Uint16(ipData[4:6]),
		FlagsFrag:   binary.BigEndian.Uint16(ipData[6:8]),
		TTL:         ipData[8],
		Protocol:    ipData[9],
		Checksum:    binary.BigEndian.Uint16(ipData[10:12]),
		SrcIP:       net.IP(ipData[12:16]),
		DstIP:       net.IP(ipData[16:20]),
	}
	if ip.Version() != 4 {
		p.parseErrors++
		return nil, &ParseError{Reason: fmt.Sprintf("unsupported IP version: %d", ip.Version())}
	}
	ihl := ip.HeaderLen()
	if ihl < ipv4MinHeaderLen || len(ipData) < ihl {
		p.parseErrors++
		return nil, &ParseError{Reason: "invalid IHL"}
	}

	pkt := &ParsedPacket{
		PacketID:  p.nextID(),
		Timestamp: timestampMicros,
		WireLen:   len(data),
		Ethernet:  eth,
		IP:        ip,
	}

	transportData := ipData[ihl:]
	switch ip.Protocol {
	case ProtoTCP:
		if len(transportData) < tcpMinHeaderLen {
			p.parseErrors++
			return nil, &ParseError{Reason: "truncated TCP header"}
		}
		tcp := TCPHeader{
			SrcPort:    binary.BigEndian.Uint16(transportData[0:2]),
			DstPort:    binary.BigEndian.Uint16(transportData[2:4]),
			SeqNum:     binary.BigEndian.Uint32(transportData[4:8]),
			AckNum:     binary.BigEndian.Uint32(transportData[8:12]),
			DataOffset: transportData[12] >> 4,
			Flags:      transportData[13] & 0x3F,
			Window:     binary.BigEndian.Uint16(transportData[14:16]),
			Checksum:   binary.BigEndian.Uint16(transportData[16:18]),
			UrgentPtr:  binary.BigEndian.Uint16(transportData[18:20]),
		}
		thl := tcp.HeaderLen()
		if thl < tcpMinHeaderLen || len(transportData) < thl {
			p.parseErrors++
			return nil, &ParseError{Reason: "invalid TCP data offset"}
		}
		pkt.HasTCP = true
		pkt.TCP = tcp
		pkt.Payload = transportData[thl:]

	case ProtoUDP:
		if len(transportData) < udpHeaderLen {
			p.parseErrors++
			return nil, &ParseError{Reason: "truncated UDP header"}
		}
		udp := UDPHeader{
			SrcPort:  binary.BigEndian.Uint16(transportData[0:2]),
			DstPort:  binary.BigEndian.Uint16(transportData[2:4]),
			Length:   binary.BigEndian.Uint16(transportData[4:6]),
			Checksum: binary.BigEndian.Uint16(transportData[6:8]),
		}
		pkt.HasUDP = true
		pkt.UDP = udp
		pkt.Payload = transportData[udpHeaderLen:]

	default:
		// Counts for statistics (including ICMP) but carries no transport
		// fields or payload, per spec.md §4.2 step 5.
	}

	p.parsed++
	return pkt, nil
}

func (p *Parser) nextID() uint64 {
	p.nextPacketID++
	return p.nextPacketID
}

// Statistics returns the parser's running counters.
func (p *Parser) Statistics() (parsed, parseErrors uint64) {
	return p.parsed, p.parseErrors
}
