package flow

import (
	"fmt"

	"github.com/netweaver/nidcore/internal/packet"
)

// Endpoint is one side of a connection.
type Endpoint struct {
	IP   string
	Port uint16
}

func (e Endpoint) less(o Endpoint) bool {
	if e.IP != o.IP {
		return e.IP < o.IP
	}
	return e.Port < o.Port
}

// Key is the canonical, direction-independent flow identity. Unlike a raw
// spec.md §3 "directional" 5-tuple, Key orders its two endpoints so that a
// reply packet maps to the same flow as its initiating packet — the fix
// for §9's "Bidirectional flows" note. Equality and hashing are
// field-wise (Key is a plain comparable struct, usable directly as a map
// key).
type Key struct {
	A, B     Endpoint
	Protocol uint8
}

// KeyFor derives the canonical key and reports whether pkt's source
// endpoint is the lower-ordered one (Key.A). Endpoint order says nothing
// about which side initiated the flow; the Tracker records that separately
// as Stats.Initiator.
func KeyFor(pkt *packet.ParsedPacket) (key Key, srcIsA bool) {
	src := Endpoint{IP: pkt.SrcIP(), Port: pkt.SrcPort()}
	dst := Endpoint{IP: pkt.DstIP(), Port: pkt.DstPort()}

	proto := uint8(packet.ProtoTCP)
	switch {
	case pkt.HasTCP:
		proto = packet.ProtoTCP
	case pkt.HasUDP:
		proto = packet.ProtoUDP
	default:
		proto = pkt.IP.Protocol
	}

	if src.less(dst) {
		return Key{A: src, B: dst, Protocol: proto}, true
	}
	return Key{A: dst, B: src, Protocol: proto}, false
}

// String renders a stable, human-readable flow identifier for logging and
// archival (e.g. storage's flow_key column).
func (k Key) String() string {
	return fmt.Sprintf("%s:%d-%s:%d/%d", k.A.IP, k.A.Port, k.B.IP, k.B.Port, k.Protocol)
}
