package models

import "time"

// AuditRetention is how long audit entries stay readable.
const AuditRetention = 24 * time.Hour

// AuditAction is the closed set of security-relevant actions.
type AuditAction string

const (
	AuditLogin           AuditAction = "LOGIN"
	AuditLogout          AuditAction = "LOGOUT"
	AuditUserDeleted     AuditAction = "USER_DELETED"
	AuditUserRegistered  AuditAction = "USER_REGISTERED"
	AuditSessionRevoked  AuditAction = "SESSION_REVOKED"
	AuditSettingsChanged AuditAction = "SETTINGS_CHANGED"
	AuditSystemAlert     AuditAction = "SYSTEM_ALERT"
)

// Valid reports whether a is one of the known actions.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditLogin, AuditLogout, AuditUserDeleted, AuditUserRegistered,
		AuditSessionRevoked, AuditSettingsChanged, AuditSystemAlert:
		return true
	}
	return false
}

// AuditLog is one entry of the rolling 24h security trace.
type AuditLog struct {
	ID        string      `json:"id"`
	AdminID   int         `json:"adminId"`
	Email     string      `json:"email"`
	Action    AuditAction `json:"action"`
	Detail    string      `json:"detail"`
	IPAddress string      `json:"ipAddress"`
	CreatedAt time.Time   `json:"createdAt"`
}
