package utils

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		remoteAddr string
		want       string
	}{
		{"first forwarded entry", "203.0.113.7, 10.0.0.1", "10.0.0.2:5000", "203.0.113.7"},
		{"mapped ipv4 in header", "::ffff:198.51.100.4", "10.0.0.2:5000", "198.51.100.4"},
		{"no header uses peer", "", "192.0.2.10:443", "192.0.2.10"},
		{"mapped ipv4 peer", "", "[::ffff:192.0.2.11]:443", "192.0.2.11"},
		{"ipv6 peer", "", "[2001:db8::1]:443", "2001:db8::1"},
		{"blank header uses peer", " , 10.0.0.1", "192.0.2.12:80", "192.0.2.12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeviceName(t *testing.T) {
	chrome := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	if got := DeviceName(chrome); got != "Chrome on Windows 10" {
		t.Errorf("DeviceName(chrome) = %q", got)
	}
	if got := DeviceName(""); got != "Unknown device" {
		t.Errorf("DeviceName(\"\") = %q", got)
	}
}
