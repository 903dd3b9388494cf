package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest("POST", "/api/webhook/receive-payment", nil)
	req.RemoteAddr = "10.0.0.7:4321"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req
	return c
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{"Real IP header", map[string]string{"X-Real-IP": "200.7.1.2"}, "200.7.1.2"},
		{"Forwarded public", map[string]string{"X-Forwarded-For": "10.1.1.1, 186.4.5.6"}, "186.4.5.6"},
		{"Forwarded private only", map[string]string{"X-Forwarded-For": "10.1.1.1, 192.168.0.2"}, "10.1.1.1"},
		{"Remote address", nil, "10.0.0.7"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, GetRealIP(newContext(tc.headers)))
		})
	}
}

func TestGetUserAgent(t *testing.T) {
	assert.Equal(t, "Unknown", GetUserAgent(newContext(nil)))
	assert.Equal(t, "curl/8.0", GetUserAgent(newContext(map[string]string{"User-Agent": "curl/8.0"})))
}

func TestParseUserAgent(t *testing.T) {
	info := ParseUserAgent("")
	assert.Equal(t, "unknown", info.DeviceType)

	info = ParseUserAgent("Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1")
	assert.Equal(t, "mobile", info.DeviceType)
	assert.False(t, info.IsBot)

	info = ParseUserAgent("Googlebot/2.1 (+http://www.google.com/bot.html)")
	assert.True(t, info.IsBot)
	assert.Equal(t, "bot", info.DeviceType)
}

func TestGenerateJWTSecrets(t *testing.T) {
	access, refresh, err := GenerateJWTSecrets()
	require.NoError(t, err)
	assert.Len(t, access, 64)
	assert.Len(t, refresh, 64)
	assert.NotEqual(t, access, refresh)
}
