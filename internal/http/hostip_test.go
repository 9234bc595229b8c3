package http

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostIPScore(t *testing.T) {
	tests := []struct {
		ip   string
		want int
	}{
		{"192.168.1.50", 3},
		{"192.168.4.20", 2},
		{"10.0.0.5", 1},
		{"172.16.0.9", 1},
		{"172.31.255.1", 1},
		{"172.32.0.1", 0},
		{"8.8.8.8", 0},
	}
	for _, tt := range tests {
		ip := net.ParseIP(tt.ip).To4()
		assert.Equal(t, tt.want, hostIPScore(ip), tt.ip)
	}
}

func TestDashboardURLKeepsExplicitHost(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:5000", dashboardURL("127.0.0.1", 5000))
	assert.Equal(t, "http://192.168.1.20:8080", dashboardURL("192.168.1.20", 8080))
}

func TestDashboardURLSubstitutesWildcardBind(t *testing.T) {
	for _, host := range []string{"0.0.0.0", "::", ""} {
		url := dashboardURL(host, 5000)
		assert.True(t, strings.HasPrefix(url, "http://"), url)
		assert.True(t, strings.HasSuffix(url, ":5000"), url)
		assert.NotContains(t, url, "0.0.0.0")
	}
}
