// Package loginsession tracks which browsers have signed in to the console.
package loginsession

import "time"

// Session admits one browser to the console's auth session.
type Session struct {
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type Repo interface {
	Upsert(sessionID string, session Session) error
	Get(sessionID string) (Session, error)
	Delete(sessionID string) error
	// DeleteAll signs every browser out.
	DeleteAll() error
}
