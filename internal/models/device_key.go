package models

import "strings"

// DeviceKeyKind tells whether a DeviceKey came from the client or the network.
type DeviceKeyKind string

const (
	DeviceKeyFingerprint DeviceKeyKind = "fingerprint"
	DeviceKeyIP          DeviceKeyKind = "ip"
)

// DeviceKey identifies the device a session belongs to. It is either a
// client-supplied fingerprint or, when none was sent, the normalized client IP.
// The kind is part of the identity: a fingerprint that happens to equal an IP
// string never matches an IP-fallback session.
type DeviceKey struct {
	Kind  DeviceKeyKind
	Value string
}

// Fingerprint builds a DeviceKey from a client-supplied fingerprint.
func Fingerprint(v string) DeviceKey {
	return DeviceKey{Kind: DeviceKeyFingerprint, Value: v}
}

// IPFallback builds a DeviceKey from the client IP.
func IPFallback(ip string) DeviceKey {
	return DeviceKey{Kind: DeviceKeyIP, Value: ip}
}

// NewDeviceKey prefers the fingerprint and falls back to the IP.
func NewDeviceKey(fingerprint, ip string) DeviceKey {
	if fp := strings.TrimSpace(fingerprint); fp != "" {
		return Fingerprint(fp)
	}
	return IPFallback(ip)
}

// IsFallback reports whether the key was derived from the IP address.
func (k DeviceKey) IsFallback() bool {
	return k.Kind == DeviceKeyIP
}

func (k DeviceKey) String() string {
	return string(k.Kind) + ":" + k.Value
}
