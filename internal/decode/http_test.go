package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHTTPRequest(t *testing.T) {
	raw := []byte("GET /x?id=1 HTTP/1.1\r\nHost: example.com\r\nContent-Length: 5\r\n\r\nhello")

	msg, ok := DecodeHTTP(raw)
	require.True(t, ok)
	assert.True(t, msg.IsRequest)
	assert.Equal(t, "GET", msg.Method)
	assert.Equal(t, "/x?id=1", msg.URI)
	assert.Equal(t, "example.com", msg.Headers["host"])
	assert.EqualValues(t, 5, msg.ContentLength)
	assert.Equal(t, "hello", string(msg.Body))
}

func TestDecodeHTTPResponse(t *testing.T) {
	raw := []byte("HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n")

	msg, ok := DecodeHTTP(raw)
	require.True(t, ok)
	assert.False(t, msg.IsRequest)
	assert.Equal(t, 404, msg.StatusCode)
	assert.Equal(t, "Not Found", msg.Reason)
}

func TestDecodeHTTPLFLineEndings(t *testing.T) {
	raw := []byte("GET / HTTP/1.0\nHost: x\n\nbody")

	msg, ok := DecodeHTTP(raw)
	require.True(t, ok)
	assert.Equal(t, "x", msg.Headers["host"])
	assert.Equal(t, "body", string(msg.Body))
}

func TestDecodeHTTPNotHTTP(t *testing.T) {
	_, ok := DecodeHTTP([]byte("\x16\x03\x01\x00\xa5random tls"))
	assert.False(t, ok)
}

func TestDecodeHTTPNoTerminator(t *testing.T) {
	msg, ok := DecodeHTTP([]byte("GET / HTTP/1.1\r\nHost: x"))
	require.True(t, ok)
	assert.True(t, msg.IsRequest)
	assert.Equal(t, "GET", msg.Method)
	assert.Equal(t, "/", msg.URI)
	assert.Empty(t, msg.Headers)
	assert.Nil(t, msg.Body)
}
