package config

import (
	"os"
	"path/filepath"
)

const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

type StorageConfig interface {
	GetStorageBackend() string
	GetStoragePath() string
	GetStorageSecret() string
	GetRedisKeyPrefix() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetStorageBackend() string {
	switch b := GetEnv("TOKEN_STORE", StorageFile); b {
	case StorageRedis, StorageMemory:
		return b
	default:
		return StorageFile
	}
}

func (Storage) GetStoragePath() string {
	if p := os.Getenv("TOKEN_STORE_PATH"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "adminctl", "tokens.json")
}

// GetStorageSecret returns the passphrase used to seal the token file. Empty disables encryption.
func (Storage) GetStorageSecret() string {
	return os.Getenv("TOKEN_STORE_SECRET")
}

func (Storage) GetRedisKeyPrefix() string {
	return GetEnv("REDIS_KEY_PREFIX", "adminctl:")
}
