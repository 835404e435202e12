package models

import "time"

const (
	// ShortInactivityTimeout applies when the short timeout policy is on.
	ShortInactivityTimeout = 24 * time.Hour
	// DefaultInactivityTimeout applies otherwise.
	DefaultInactivityTimeout = 30 * 24 * time.Hour
)

// Settings is the singleton inactivity policy row.
type Settings struct {
	ShortTimeout bool      `db:"short_timeout" json:"shortTimeout"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// InactivityThreshold returns how long a session may stay idle.
func (s *Settings) InactivityThreshold() time.Duration {
	if s.ShortTimeout {
		return ShortInactivityTimeout
	}
	return DefaultInactivityTimeout
}

// TimeoutLabel names the active policy for audit details.
func (s *Settings) TimeoutLabel() string {
	if s.ShortTimeout {
		return "24 hours"
	}
	return "30 days"
}
