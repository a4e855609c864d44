// Package catalog holds the account and catalog rules shared by every
// client protocol: authentication, bouquet visibility and category aliasing.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/may5ra/server-stream-one/internal/models"
	"github.com/may5ra/server-stream-one/internal/store"
)

var (
	// ErrInvalidCredentials covers unknown users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrExpired is returned together with the user so callers that may
	// expose the expiry (Stalker do_auth, playlist 403) can do so.
	ErrExpired = errors.New("account expired")
	// ErrBlocked is returned for disabled or banned accounts.
	ErrBlocked = errors.New("account disabled")
)

// UserFinder looks up subscriber accounts.
type UserFinder interface {
	GetUserByCredentials(ctx context.Context, username, password string) (*models.StreamingUser, error)
	GetUserByMAC(ctx context.Context, mac string) (*models.StreamingUser, error)
}

// Authenticate checks username/password. Both must match exactly.
func Authenticate(ctx context.Context, f UserFinder, username, password string, now time.Time) (*models.StreamingUser, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := f.GetUserByCredentials(ctx, username, password)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("GetUserByCredentials: %w", err)
	}
	if u.Username != username || u.Password != password {
		return nil, ErrInvalidCredentials
	}
	return u, CheckAccount(u, now)
}

// AuthenticateMAC resolves a device by its normalised MAC address.
func AuthenticateMAC(ctx context.Context, f UserFinder, mac string, now time.Time) (*models.StreamingUser, error) {
	mac = NormalizeMAC(mac)
	if mac == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := f.GetUserByMAC(ctx, mac)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("GetUserByMAC: %w", err)
	}
	return u, CheckAccount(u, now)
}

// CheckAccount returns ErrBlocked or ErrExpired when u may not play.
func CheckAccount(u *models.StreamingUser, now time.Time) error {
	if u.Blocked() {
		return ErrBlocked
	}
	if u.Expired(now) {
		return ErrExpired
	}
	return nil
}

// NormalizeMAC strips ':' and '-' separators and uppercases, so
// "aa:bb:cc:dd:ee:ff" and "AA-BB-CC-DD-EE-FF" share the key AABBCCDDEEFF.
func NormalizeMAC(mac string) string {
	return models.NormalizeMAC(mac)
}
