package models

import "time"

// AdminUser is the single administrator allowed to operate the control plane.
type AdminUser struct {
	ID           int       `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	TOTPSecret   *string   `db:"totp_secret" json:"-"`
	TOTPEnabled  bool      `db:"totp_enabled" json:"totpEnabled"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// HasSecret reports whether a TOTP secret has been written, confirmed or not.
func (a *AdminUser) HasSecret() bool {
	return a.TOTPSecret != nil && *a.TOTPSecret != ""
}

// IdentityStatus is the answer to an identity check on the login screen.
type IdentityStatus string

const (
	IdentitySetupNeeded  IdentityStatus = "setup_needed"
	IdentityVerifyNeeded IdentityStatus = "verify_needed"
	IdentityForbidden    IdentityStatus = "forbidden"
)
