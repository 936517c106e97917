package rules

import (
	"strings"
	"time"

	"github.com/netweaver/nidcore/internal/alert"
	"github.com/netweaver/nidcore/internal/packet"
)

// Engine evaluates a fixed ruleset against every packet, matching
// spec.md §4.6's six-step short-circuiting predicate chain: protocol,
// IP filter, port list, TCP flags mask/value, content substrings, regex.
// A rule matches only if every step it declares a constraint for passes;
// steps with no constraint are skipped (treated as pass).
type Engine struct {
	rules []*SignatureRule
	ids   *alert.IDGenerator
}

// NewEngine builds an Engine from already-Compile()d rules. Disabled
// rules (Enabled == false) are kept out of the hot loop entirely rather
// than checked per packet.
func NewEngine(rules []*SignatureRule, ids *alert.IDGenerator) *Engine {
	active := make([]*SignatureRule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			active = append(active, r)
		}
	}
	return &Engine{rules: active, ids: ids}
}

// Evaluate runs pkt against every active rule in order and returns one
// Alert per match (spec.md §4.6: a packet may trigger more than one
// rule). The returned slice is nil, not empty, when nothing matches.
func (e *Engine) Evaluate(pkt *packet.ParsedPacket, now time.Time) []alert.Alert {
	var out []alert.Alert
	for _, r := range e.rules {
		matchedContent, ok := r.match(pkt)
		if !ok {
			continue
		}
		out = append(out, alert.Alert{
			AlertID:        e.ids.Next(),
			Timestamp:      now,
			RuleID:         r.ID,
			RuleName:       r.Name,
			Severity:       r.Severity,
			PacketID:       pkt.PacketID,
			SrcIP:          pkt.SrcIP(),
			DstIP:          pkt.DstIP(),
			SrcPort:        pkt.SrcPort(),
			DstPort:        pkt.DstPort(),
			Protocol:       pkt.ProtocolName(),
			Description:    r.Description,
			MatchedContent: matchedContent,
		})
	}
	return out
}

// match runs the six-step chain for one rule and returns the matched
// content snippet (for content/regex hits) alongside whether it matched.
func (r *SignatureRule) match(pkt *packet.ParsedPacket) (string, bool) {
	// Step 1: protocol.
	if r.Protocol != "" && !protocolMatches(r.Protocol, pkt) {
		return "", false
	}

	// Step 2: IP filter — literal equality or "any"; CIDR-shaped filters
	// are reserved and never match (spec.md §9).
	if !ipFilterMatches(r.SrcIPFilter, r.SrcIPReserved, pkt.SrcIP()) {
		return "", false
	}
	if !ipFilterMatches(r.DstIPFilter, r.DstIPReserved, pkt.DstIP()) {
		return "", false
	}

	// Step 3: port list.
	if len(r.SrcPorts) > 0 && !portIn(r.SrcPorts, pkt.SrcPort()) {
		return "", false
	}
	if len(r.DstPorts) > 0 && !portIn(r.DstPorts, pkt.DstPort()) {
		return "", false
	}

	// Step 4: TCP flags mask/value.
	if r.TCPFlagsMask != 0 {
		if !pkt.HasTCP || pkt.TCP.Flags&r.TCPFlagsMask != r.TCPFlagsValue {
			return "", false
		}
	}

	window := pkt.Payload
	if len(window) > contentWindow {
		window = window[:contentWindow]
	}

	// Steps 5-6: content substrings and regex patterns both contribute to
	// the same OR — a rule declaring either (or both) matches if any
	// content pattern occurs (case insensitive) or any regex matches,
	// within the first 1,024 octets of payload.
	if len(r.ContentPatterns) > 0 || len(r.regex) > 0 {
		if len(pkt.Payload) == 0 {
			return "", false
		}
		lowerWindow := strings.ToLower(string(window))
		for i, pat := range r.lowerContent {
			if pat != "" && strings.Contains(lowerWindow, pat) {
				return r.ContentPatterns[i], true
			}
		}
		for _, re := range r.regex {
			if loc := re.FindIndex(window); loc != nil {
				return string(window[loc[0]:loc[1]]), true
			}
		}
		return "", false
	}

	return "", true
}

func protocolMatches(want string, pkt *packet.ParsedPacket) bool {
	switch want {
	case "tcp":
		return pkt.HasTCP
	case "udp":
		return pkt.HasUDP
	case "icmp":
		return pkt.IP.Protocol == packet.ProtoICMP
	default:
		return false
	}
}

func portIn(ports []uint16, p uint16) bool {
	for _, x := range ports {
		if x == p {
			return true
		}
	}
	return false
}

func ipFilterMatches(filter string, reserved bool, presentation string) bool {
	if filter == "" || filter == "any" {
		return true
	}
	if reserved {
		return false
	}
	return filter == presentation
}
