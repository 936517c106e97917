package decode

import (
	"encoding/binary"
	"fmt"
)

// maxCompressionHops bounds the DNS label-decompression walk so a
// maliciously-crafted pointer chain cannot loop or spin forever
// (spec.md §8's boundary behavior).
const maxCompressionHops = 128

const dnsHeaderLen = 12

// DNSMessage is the result of decoding a DNS header and question section,
// per spec.md §4.3. Answer records are counted but not decoded.
type DNSMessage struct {
	TransactionID uint16
	IsResponse    bool // QR bit, bit 15 of the flags field

	Questions  uint16
	Answers    uint16
	Authority  uint16
	Additional uint16

	QuestionName  string
	QuestionType  uint16
	QuestionClass uint16
}

// DecodeDNS parses a DNS header and first question record out of
// payload. Per spec.md §4.3, a malformed message returns ok == false
// rather than a partially-populated DNSMessage.
func DecodeDNS(payload []byte) (*DNSMessage, bool) {
	if len(payload) < dnsHeaderLen {
		return nil, false
	}

	flags := binary.BigEndian.Uint16(payload[2:4])
	msg := &DNSMessage{
		TransactionID: binary.BigEndian.Uint16(payload[0:2]),
		IsResponse:    flags&0x8000 != 0,
		Questions:     binary.BigEndian.Uint16(payload[4:6]),
		Answers:       binary.BigEndian.Uint16(payload[6:8]),
		Authority:     binary.BigEndian.Uint16(payload[8:10]),
		Additional:    binary.BigEndian.Uint16(payload[10:12]),
	}

	if msg.Questions == 0 {
		return msg, true
	}

	name, next, err := decodeName(payload, dnsHeaderLen)
	if err != nil {
		return nil, false
	}
	if next+4 > len(payload) {
		return nil, false
	}
	msg.QuestionName = name
	msg.QuestionType = binary.BigEndian.Uint16(payload[next : next+2])
	msg.QuestionClass = binary.BigEndian.Uint16(payload[next+2 : next+4])

	return msg, true
}

// decodeName walks a DNS-encoded name starting at offset, following
// compression pointers (leading bits 11) without looping, and returns
// the decoded dotted name plus the offset immediately after the name as
// it appears in the original (non-pointer-followed) stream.
func decodeName(payload []byte, offset int) (string, int, error) {
	var labels []byte
	pos := offset
	endPos := -1 // offset just past the name in the caller's stream
	hops := 0

	for {
		if pos >= len(payload) {
			return "", 0, fmt.Errorf("decode: dns name runs past end of message")
		}
		length := payload[pos]

		if length == 0 {
			if endPos < 0 {
				endPos = pos + 1
			}
			break
		}

		if length&0xC0 == 0xC0 {
			if pos+1 >= len(payload) {
				return "", 0, fmt.Errorf("decode: truncated compression pointer")
			}
			if endPos < 0 {
				endPos = pos + 2
			}
			hops++
			if hops > maxCompressionHops {
				return "", 0, fmt.Errorf("decode: compression pointer chain too long")
			}
			ptr := int(length&0x3F)<<8 | int(payload[pos+1])
			pos = ptr
			continue
		}

		if length&0xC0 != 0 {
			return "", 0, fmt.Errorf("decode: reserved label length bits set")
		}

		start := pos + 1
		end := start + int(length)
		if end > len(payload) {
			return "", 0, fmt.Errorf("decode: label runs past end of message")
		}
		if len(labels) > 0 {
			labels = append(labels, '.')
		}
		labels = append(labels, payload[start:end]...)
		pos = end
	}

	return string(labels), endPos, nil
}
