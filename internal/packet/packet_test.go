package packet

import (
	"encoding/binary"
	"testing"
)

// buildFrame assembles a minimal Ethernet+IPv4(+TCP|UDP) frame for tests,
// in the same hand-assembled-byte-slice style as netflow's parser_test.go.
func buildFrame(t *testing.T, proto uint8, srcIP, dstIP [4]byte, transport []byte) []byte {
	t.Helper()

	ihl := 20
	totalLen := ihl + len(transport)

	frame := make([]byte, ethernetHeaderLen+totalLen)

	// Ethernet: dst/src MAC arbitrary, ethertype IPv4.
	copy(frame[0:6], []byte{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa})
	copy(frame[6:12], []byte{0xbb, 0xbb, 0xbb, 0xbb, 0xbb, 0xbb})
	binary.BigEndian.PutUint16(frame[12:14], EtherTypeIPv4)

	ip := frame[ethernetHeaderLen:]
	ip[0] = 0x45 // version 4, IHL 5
	binary.BigEndian.PutUint16(ip[2:4], uint16(totalLen))
	ip[8] = 64 // TTL
	ip[9] = proto
	copy(ip[12:16], srcIP[:])
	copy(ip[16:20], dstIP[:])

	copy(ip[ihl:], transport)

	return frame
}

func buildTCPSegment(srcPort, dstPort uint16, flags uint8, payload []byte) []byte {
	seg := make([]byte, 20+len(payload))
	binary.BigEndian.PutUint16(seg[0:2], srcPort)
	binary.BigEndian.PutUint16(seg[2:4], dstPort)
	seg[12] = 5 << 4 // data offset 5 (no options)
	seg[13] = flags
	copy(seg[20:], payload)
	return seg
}

func buildUDPSegment(srcPort, dstPort uint16, payload []byte) []byte {
	seg := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint16(seg[0:2], srcPort)
	binary.BigEndian.PutUint16(seg[2:4], dstPort)
	binary.BigEndian.PutUint16(seg[4:6], uint16(8+len(payload)))
	copy(seg[8:], payload)
	return seg
}

func TestParseTCP(t *testing.T) {
	payload := []byte("GET / HTTP/1.1\r\n\r\n")
	tcp := buildTCPSegment(52342, 80, TCPFlagPSH|TCPFlagACK, payload)
	frame := buildFrame(t, ProtoTCP, [4]byte{10, 0, 0, 50}, [4]byte{192, 168, 1, 10}, tcp)

	p := NewParser()
	pkt, err := p.Parse(frame, 1000)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !pkt.HasTCP || pkt.HasUDP {
		t.Fatalf("expected TCP packet, got HasTCP=%v HasUDP=%v", pkt.HasTCP, pkt.HasUDP)
	}
	if pkt.SrcIP() != "10.0.0.50" || pkt.DstIP() != "192.168.1.10" {
		t.Errorf("unexpected IPs: %s -> %s", pkt.SrcIP(), pkt.DstIP())
	}
	if pkt.SrcPort() != 52342 || pkt.DstPort() != 80 {
		t.Errorf("unexpected ports: %d -> %d", pkt.SrcPort(), pkt.DstPort())
	}
	if pkt.TCP.Flags != (TCPFlagPSH | TCPFlagACK) {
		t.Errorf("unexpected flags: 0x%02x", pkt.TCP.Flags)
	}
	if string(pkt.Payload) != string(payload) {
		t.Errorf("payload mismatch: got %q", pkt.Payload)
	}
	if pkt.ProtocolName() != "TCP" {
		t.Errorf("expected protocol name TCP, got %s", pkt.ProtocolName())
	}
	if pkt.PacketID != 1 {
		t.Errorf("expected first packet_id 1, got %d", pkt.PacketID)
	}
}

func TestParseUDP(t *testing.T) {
	payload := []byte("dns-query")
	udp := buildUDPSegment(53214, 53, payload)
	frame := buildFrame(t, ProtoUDP, [4]byte{10, 0, 0, 1}, [4]byte{8, 8, 8, 8}, udp)

	p := NewParser()
	pkt, err := p.Parse(frame, 2000)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !pkt.HasUDP {
		t.Fatal("expected UDP packet")
	}
	if pkt.DstPort() != 53 {
		t.Errorf("expected dst port 53, got %d", pkt.DstPort())
	}
	if string(pkt.Payload) != string(payload) {
		t.Errorf("payload mismatch: got %q", pkt.Payload)
	}
}

func TestParsePacketIDMonotone(t *testing.T) {
	udp := buildUDPSegment(1, 2, nil)
	frame := buildFrame(t, ProtoUDP, [4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, udp)

	p := NewParser()
	var ids []uint64
	for i := 0; i < 3; i++ {
		pkt, err := p.Parse(frame, int64(i))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		ids = append(ids, pkt.PacketID)
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("packet_id not monotone increasing: %v", ids)
		}
	}
}

func TestParseTooShort(t *testing.T) {
	p := NewParser()
	_, err := p.Parse(make([]byte, 10), 0)
	if err == nil {
		t.Fatal("expected error for undersized frame")
	}
	parsed, parseErrors := p.Statistics()
	if parsed != 0 || parseErrors != 1 {
		t.Errorf("expected 0 parsed / 1 error, got %d/%d", parsed, parseErrors)
	}
}

func TestParseNonIPv4Ethertype(t *testing.T) {
	frame := make([]byte, minFrameLen)
	binary.BigEndian.PutUint16(frame[12:14], 0x86DD) // IPv6 ethertype
	p := NewParser()
	_, err := p.Parse(frame, 0)
	if err == nil {
		t.Fatal("expected error for non-IPv4 ethertype")
	}
}

func TestParseOtherProtocolNoPayload(t *testing.T) {
	icmp := make([]byte, 8)
	frame := buildFrame(t, ProtoICMP, [4]byte{1, 2, 3, 4}, [4]byte{5, 6, 7, 8}, icmp)

	p := NewParser()
	pkt, err := p.Parse(frame, 0)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if pkt.HasTCP || pkt.HasUDP {
		t.Fatal("ICMP packet should have no transport header")
	}
	if pkt.ProtocolName() != "OTHER" {
		t.Errorf("expected OTHER, got %s", pkt.ProtocolName())
	}
	if pkt.Payload != nil {
		t.Errorf("expected nil payload for non-TCP/UDP, got %v", pkt.Payload)
	}
}
