package flow

import "github.com/netweaver/nidcore/internal/packet"

// State is the TCP connection state as tracked by the flow table. Only the
// subset of RFC 793 needed for flow accounting is modeled; spec.md §9
// explicitly notes this is not precise enough for security decisions that
// depend on connection state (simultaneous close, half-close).
type State int

const (
	StateUnknown State = iota
	StateSynSent
	StateSynReceived
	StateEstablished
	StateFinWait
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "UNKNOWN"
	case StateSynSent:
		return "SYN_SENT"
	case StateSynReceived:
		return "SYN_RECEIVED"
	case StateEstablished:
		return "ESTABLISHED"
	case StateFinWait:
		return "FIN_WAIT"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// advance applies the spec.md §4.4.1 state table to one observed TCP flag
// set. Transitions are one-way; CLOSED is terminal. Unmatched conditions
// leave the state unchanged.
func advance(current State, flags uint8) State {
	syn := flags&packet.TCPFlagSYN != 0
	ack := flags&packet.TCPFlagACK != 0
	fin := flags&packet.TCPFlagFIN != 0
	rst := flags&packet.TCPFlagRST != 0

	switch current {
	case StateUnknown:
		if syn && !ack {
			return StateSynSent
		}
	case StateSynSent:
		if syn && ack {
			return StateSynReceived
		}
	case StateSynReceived:
		if ack {
			return StateEstablished
		}
	case StateEstablished:
		if fin {
			return StateFinWait
		}
		if rst {
			return StateClosed
		}
	case StateFinWait:
		if fin || rst {
			return StateClosed
		}
	}
	return current
}
