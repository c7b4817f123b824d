package config

import "time"

type SessionConfig interface {
	GetValidityMargin() time.Duration
	GetRefreshWindow() time.Duration
	GetLogoutNotifyTimeout() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetValidityMargin is subtracted from the access token expiry before it is considered valid.
func (Session) GetValidityMargin() time.Duration {
	return 30 * time.Second
}

// GetRefreshWindow is how far ahead of expiry a proactive refresh kicks in.
func (Session) GetRefreshWindow() time.Duration {
	return 5 * time.Minute
}

func (Session) GetLogoutNotifyTimeout() time.Duration {
	return 5 * time.Second
}
