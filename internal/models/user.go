package models

import (
	"strings"
	"time"
)

// StreamingUser is a subscriber account. It is the identity anchor for both
// Xtream (username/password) and Stalker (MAC address) clients.
type StreamingUser struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	Password       string     `json:"-"`
	Status         string     `json:"status"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	MaxConnections int        `json:"max_connections"`
	MACAddress     *string    `json:"mac_address,omitempty"`
	Bouquets       []string   `json:"bouquets,omitempty"`
	LastActive     *time.Time `json:"last_active,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// Expired reports whether the account expiry lies at or before now.
// Accounts without an expiry date never expire.
func (u *StreamingUser) Expired(now time.Time) bool {
	return u.ExpiryDate != nil && !u.ExpiryDate.After(now)
}

// Blocked reports whether an administrator disabled or banned the account.
func (u *StreamingUser) Blocked() bool {
	return u.Status == UserDisabled || u.Status == UserBanned
}

// NormalizeMAC strips ':' and '-' separators and uppercases a MAC address.
func NormalizeMAC(mac string) string {
	mac = strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(mac))
	return strings.ToUpper(mac)
}
