package rules

import (
	"net"
	"testing"
	"time"

	"github.com/netweaver/nidcore/internal/alert"
	"github.com/netweaver/nidcore/internal/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tcpPacket(t *testing.T, srcIP, dstIP string, srcPort, dstPort uint16, flags uint8, payload []byte) *packet.ParsedPacket {
	t.Helper()
	return &packet.ParsedPacket{
		PacketID: 1,
		IP: packet.IPv4Header{
			Protocol: packet.ProtoTCP,
			SrcIP:    net.ParseIP(srcIP).To4(),
			DstIP:    net.ParseIP(dstIP).To4(),
		},
		HasTCP: true,
		TCP: packet.TCPHeader{
			SrcPort: srcPort,
			DstPort: dstPort,
			Flags:   flags,
		},
		Payload: payload,
	}
}

// S1 — SQL-injection HTTP request.
func TestS1SQLInjection(t *testing.T) {
	engine := NewEngine(DefaultRules(), &alert.IDGenerator{})
	pkt := tcpPacket(t, "10.0.0.50", "192.168.1.10", 52342, 80,
		packet.TCPFlagPSH|packet.TCPFlagACK,
		[]byte("GET /x?id=1' or '1'='1 HTTP/1.1\r\n\r\n"))

	alerts := engine.Evaluate(pkt, time.Now())

	require.Len(t, alerts, 1)
	assert.EqualValues(t, 1002, alerts[0].RuleID)
	assert.Equal(t, "high", alerts[0].Severity.String())
	assert.Contains(t, []string{"or 1=1", "' or '1'='1"}, alerts[0].MatchedContent)
}

// S2 — SYN port scan across {22, 80, 443, 3306, 8080}.
func TestS2SYNPortScan(t *testing.T) {
	engine := NewEngine(DefaultRules(), &alert.IDGenerator{})
	ports := []uint16{22, 80, 443, 3306, 8080}

	var total int
	port22Rules := map[uint32]bool{}
	for _, p := range ports {
		pkt := tcpPacket(t, "10.0.0.50", "192.168.1.100", 40000, p, packet.TCPFlagSYN, nil)
		alerts := engine.Evaluate(pkt, time.Now())
		assert.NotEmpty(t, alerts, "port %d should trigger at least one rule", p)
		total += len(alerts)
		if p == 22 {
			for _, a := range alerts {
				port22Rules[a.RuleID] = true
			}
		}
	}

	assert.GreaterOrEqual(t, total, 5)
	assert.True(t, port22Rules[1001] && port22Rules[1003], "port 22 should trip both the SSH-probe and the generic scan rule")
}

// S3 — Telnet.
func TestS3Telnet(t *testing.T) {
	engine := NewEngine(DefaultRules(), &alert.IDGenerator{})
	pkt := tcpPacket(t, "10.0.0.50", "192.168.1.10", 51000, 23, packet.TCPFlagACK, nil)

	alerts := engine.Evaluate(pkt, time.Now())

	require.Len(t, alerts, 1)
	assert.EqualValues(t, 1006, alerts[0].RuleID)
	assert.Equal(t, "medium", alerts[0].Severity.String())
}

func TestFTPCredentialsRule(t *testing.T) {
	engine := NewEngine(DefaultRules(), &alert.IDGenerator{})
	pkt := tcpPacket(t, "10.0.0.50", "192.168.1.10", 51000, 21, packet.TCPFlagPSH|packet.TCPFlagACK, []byte("USER anonymous\r\n"))

	alerts := engine.Evaluate(pkt, time.Now())

	require.Len(t, alerts, 1)
	assert.EqualValues(t, 1004, alerts[0].RuleID)
}

func TestDisabledRuleNeverFires(t *testing.T) {
	engine := NewEngine(DefaultRules(), &alert.IDGenerator{})
	pkt := &packet.ParsedPacket{
		IP: packet.IPv4Header{
			Protocol: packet.ProtoUDP,
			SrcIP:    net.ParseIP("10.0.0.1").To4(),
			DstIP:    net.ParseIP("10.0.0.2").To4(),
		},
		HasUDP: true,
		UDP:    packet.UDPHeader{SrcPort: 40000, DstPort: 53},
	}

	alerts := engine.Evaluate(pkt, time.Now())
	for _, a := range alerts {
		assert.NotEqual(t, uint32(1005), a.RuleID)
	}
}

func TestReservedCIDRFilterNeverMatches(t *testing.T) {
	r := &SignatureRule{
		ID:          9001,
		Protocol:    "tcp",
		Enabled:     true,
		SrcIPFilter: "10.0.0.0/24",
	}
	require.NoError(t, r.Compile())
	assert.True(t, r.SrcIPReserved)

	pkt := tcpPacket(t, "10.0.0.5", "1.1.1.1", 1, 2, packet.TCPFlagACK, nil)
	_, ok := r.match(pkt)
	assert.False(t, ok)
}

func TestInvalidRegexSkippedAndCounted(t *testing.T) {
	r := &SignatureRule{
		ID:            9002,
		Protocol:      "tcp",
		Enabled:       true,
		RegexPatterns: []string{"(unterminated", "valid.*pattern"},
	}
	require.NoError(t, r.Compile())
	assert.Equal(t, 1, r.InvalidRegexCount)
	assert.Len(t, r.regex, 1)
}
