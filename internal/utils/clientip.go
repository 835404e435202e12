package utils

import (
	"net"
	"net/http"
	"strings"
)

const ipv4MappedPrefix = "::ffff:"

// ClientIP returns the normalized caller IP: the first X-Forwarded-For entry
// when present, otherwise the socket peer address. IPv4-mapped IPv6
// addresses are reduced to their IPv4 form.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := NormalizeIP(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return NormalizeIP(host)
}

// NormalizeIP trims whitespace and the IPv4-mapped prefix.
func NormalizeIP(raw string) string {
	ip := strings.TrimSpace(raw)
	if len(ip) > len(ipv4MappedPrefix) && strings.EqualFold(ip[:len(ipv4MappedPrefix)], ipv4MappedPrefix) {
		ip = ip[len(ipv4MappedPrefix):]
	}
	return ip
}
