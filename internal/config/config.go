package config

import (
	"time"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
	SessionConfig
	RoutesConfig
}

type EnvConfig interface {
	GetPort() string
	GetListenAddr() string
	GetConsoleSessionTTL() time.Duration
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type APIConfig interface {
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
	GetAPIRateLimit() float64
	GetAPIRateBurst() int
}

type mainConfig struct {
	EnvVars
	Storage
	Session
	Routes
}

// New loads an optional .env file and returns the environment backed configuration.
func New() Config {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	return mainConfig{}
}
