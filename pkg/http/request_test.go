package http

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP_ForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	req.RemoteAddr = "192.0.2.1:1234"

	assert.Equal(t, "203.0.113.9", ExtractClientIP(req))
}

func TestExtractClientIP_InvalidForwardedFor_FallsThrough(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "not-an-ip")
	req.Header.Set("X-Real-IP", "198.51.100.7")
	req.RemoteAddr = "192.0.2.1:1234"

	assert.Equal(t, "198.51.100.7", ExtractClientIP(req))
}

func TestExtractClientIP_RemoteAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	assert.Equal(t, "192.0.2.1", ExtractClientIP(req))
}

func TestIsLoopback(t *testing.T) {
	cases := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"0.0.0.0", true},
		{"localhost", true},
		{"", true},
		{"203.0.113.9", false},
		{"not-an-ip", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, IsLoopback(tc.ip), "ip=%q", tc.ip)
	}
}

func TestWriteBlocked(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteBlocked(rec, "Account temporarily blocked", 42)

	assert.Equal(t, 403, rec.Code)
	assert.Contains(t, rec.Body.String(), `"retry_after":42`)
}
