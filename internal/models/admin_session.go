package models

import "time"

// AdminSession is one authenticated device of an administrator.
// Rows are never deleted; revocation and timeout only clear IsActive.
type AdminSession struct {
	ID            string        `db:"id" json:"id"`
	AdminID       int           `db:"admin_id" json:"adminId"`
	Email         string        `db:"email" json:"email"`
	DeviceKeyKind DeviceKeyKind `db:"device_key_kind" json:"deviceKeyKind"`
	DeviceKey     string        `db:"device_key" json:"-"`
	IPAddress     string        `db:"ip_address" json:"ipAddress"`
	UserAgent     string        `db:"user_agent" json:"userAgent"`
	DeviceName    string        `db:"device_name" json:"deviceName"`
	LastSeenAt    time.Time     `db:"last_seen_at" json:"lastSeenAt"`
	IsActive      bool          `db:"is_active" json:"isActive"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
}

// DeviceMeta is the request-derived metadata written on every login.
type DeviceMeta struct {
	IPAddress  string
	UserAgent  string
	DeviceName string
}
