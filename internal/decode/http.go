// Package decode implements the application-protocol decoders described
// in spec.md §4.3: HTTP and DNS, invoked conditionally on the transport
// port. Decoding never aborts the pipeline — a malformed payload returns
// ok == false and the caller increments a decode-error counter.
package decode

import (
	"bytes"
	"strconv"
	"strings"
)

// HTTPMessage is the result of decoding either an HTTP request or an
// HTTP response start line plus headers, per spec.md §4.3.
type HTTPMessage struct {
	IsRequest bool

	Method  string // request only
	URI     string // request only
	Version string

	StatusCode int    // response only
	Reason     string // response only

	Headers       map[string]string // keys lowercased, per spec.md §4.3
	ContentLength int64             // -1 if absent or unparseable
	Body          []byte
}

// LooksLikeHTTP reports whether payload begins with one of the 4-octet
// prefixes spec.md §4.3 recognizes.
func LooksLikeHTTP(payload []byte) bool {
	if len(payload) < 4 {
		return false
	}
	switch string(payload[:4]) {
	case "GET ", "POST", "HEAD", "PUT ", "HTTP":
		return true
	default:
		return false
	}
}

// DecodeHTTP parses an HTTP request or response out of payload. It
// distinguishes the two by the leading "HTTP" token (a response's status
// line starts "HTTP/1.1 200 OK"; a request's start line never does).
func DecodeHTTP(payload []byte) (*HTTPMessage, bool) {
	if !LooksLikeHTTP(payload) {
		return nil, false
	}

	msg := &HTTPMessage{
		Headers:       make(map[string]string),
		ContentLength: -1,
	}

	headerEnd, sep := findHeaderTerminator(payload)
	if headerEnd < 0 {
		// No header terminator: still a parsed start line, per spec.md
		// §4.3's boundary behavior, with empty headers and no body.
		if string(payload[:4]) == "HTTP" {
			if !parseStatusLine(startLine(payload), msg) {
				return nil, false
			}
		} else {
			if !parseRequestLine(startLine(payload), msg) {
				return nil, false
			}
			msg.IsRequest = true
		}
		return msg, true
	}

	lines := splitLines(payload[:headerEnd], sep)
	if len(lines) == 0 {
		return nil, false
	}

	if string(payload[:4]) == "HTTP" {
		if !parseStatusLine(lines[0], msg) {
			return nil, false
		}
	} else {
		if !parseRequestLine(lines[0], msg) {
			return nil, false
		}
		msg.IsRequest = true
	}

	for _, line := range lines[1:] {
		idx := bytes.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(string(line[:idx])))
		val := strings.TrimSpace(string(line[idx+1:]))
		msg.Headers[key] = val
		if key == "content-length" {
			if n, err := strconv.ParseInt(val, 10, 64); err == nil {
				msg.ContentLength = n
			}
		}
	}

	msg.Body = payload[headerEnd+len(sep)*2:]
	return msg, true
}

func parseRequestLine(line []byte, msg *HTTPMessage) bool {
	fields := strings.Fields(string(line))
	if len(fields) != 3 {
		return false
	}
	msg.Method, msg.URI, msg.Version = fields[0], fields[1], fields[2]
	return true
}

func parseStatusLine(line []byte, msg *HTTPMessage) bool {
	fields := strings.SplitN(string(line), " ", 3)
	if len(fields) < 2 {
		return false
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return false
	}
	msg.Version = fields[0]
	msg.StatusCode = code
	if len(fields) == 3 {
		msg.Reason = fields[2]
	}
	return true
}

// findHeaderTerminator locates the blank line that ends the header block,
// accepting either CRLF or LF line endings (spec.md §4.3), and returns the
// offset of the terminator plus the line-ending token found.
func findHeaderTerminator(payload []byte) (int, []byte) {
	if idx := bytes.Index(payload, []byte("\r\n\r\n")); idx >= 0 {
		return idx, []byte("\r\n")
	}
	if idx := bytes.Index(payload, []byte("\n\n")); idx >= 0 {
		return idx, []byte("\n")
	}
	return -1, nil
}

func splitLines(block []byte, sep []byte) [][]byte {
	return bytes.Split(block, sep)
}

// startLine returns the first line of payload (up to the first LF, with
// any trailing CR trimmed), used when no header terminator was found.
func startLine(payload []byte) []byte {
	if idx := bytes.IndexByte(payload, '\n'); idx >= 0 {
		return bytes.TrimSuffix(payload[:idx], []byte("\r"))
	}
	return payload
}
