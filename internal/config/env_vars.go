package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar     = "PORT"
	hostEnvVar     = "HOST"
	consoleTTLVar  = "CONSOLE_SESSION_TTL"
	appNameVar     = "APP_NAME"
	logLevelVar    = "LOG_LEVEL"
	apiBaseURLVar  = "API_BASE_URL"
	apiTimeoutVar  = "API_TIMEOUT"
	apiRateVar     = "API_RATE_LIMIT"
	apiBurstVar    = "API_RATE_BURST"
	defaultBaseURL = "http://localhost:8080/api/v1"
)

type EnvVars struct{}

var (
	_ EnvConfig = EnvVars{}
	_ APIConfig = EnvVars{}
)

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8090")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

// GetListenAddr is where the console listens. HOST defaults to the loopback interface;
// set HOST=0.0.0.0 to expose the console on every interface.
func (e EnvVars) GetListenAddr() string {
	host := GetEnv(hostEnvVar, "127.0.0.1")
	return net.JoinHostPort(host, strings.TrimPrefix(e.GetPort(), ":"))
}

// GetConsoleSessionTTL bounds how long a browser stays signed in to the console.
func (EnvVars) GetConsoleSessionTTL() time.Duration {
	return GetDuration(consoleTTLVar, 8*time.Hour)
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Admin Console")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetAPIBaseURL returns the REST backend root, e.g. "https://admin.example.com/api/v1"
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, defaultBaseURL), "/")
}

func (EnvVars) GetAPITimeout() time.Duration {
	return GetDuration(apiTimeoutVar, 10*time.Second)
}

func (EnvVars) GetAPIRateLimit() float64 {
	v, err := strconv.ParseFloat(GetEnv(apiRateVar, "10"), 64)
	if err != nil || v <= 0 {
		return 10
	}
	return v
}

func (EnvVars) GetAPIRateBurst() int {
	return GetInt(apiBurstVar, 20)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetInt(envVar string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return n
}

func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
