package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AlibekovAA/member-chat/internal/common/constants"
	commonerrors "github.com/AlibekovAA/member-chat/internal/common/errors"
)

const (
	StorageBackendPostgres = "postgres"
	StorageBackendMemory   = "memory"
)

type AppConfig struct {
	HTTPPort       string
	StorageBackend string
	DatabaseURL    string
	MigrateOnStart bool
	RequestTimeout time.Duration
	BcryptCost     int

	CircuitBreakerThreshold int32
	CircuitBreakerTimeout   time.Duration
	CircuitBreakerReset     time.Duration

	WebSocket WebSocketConfig

	LogDir   string
	LogLevel string
}

type WebSocketConfig struct {
	WriteWait   time.Duration
	PongWait    time.Duration
	PingPeriod  time.Duration
	MaxMsgSize  int64
	SendBufSize int
	AuthTimeout time.Duration
}

// Load reads the process environment. A .env file in the working directory,
// when present, fills in variables that are not already set.
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	backend := strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendPostgres))
	if backend != StorageBackendPostgres && backend != StorageBackendMemory {
		return AppConfig{}, fmt.Errorf("unsupported STORAGE_BACKEND %q", backend)
	}

	var databaseURL string
	if backend == StorageBackendPostgres {
		v, err := mustEnv("DATABASE_URL")
		if err != nil {
			return AppConfig{}, err
		}
		databaseURL = v
	}

	return AppConfig{
		HTTPPort:       getEnv("HTTP_PORT", constants.DefaultHTTPPort),
		StorageBackend: backend,
		DatabaseURL:    databaseURL,
		MigrateOnStart: getBoolEnv("DB_MIGRATE_ON_START", true),
		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", constants.DefaultRequestTimeout),
		BcryptCost:     getIntEnv("BCRYPT_COST", constants.DefaultBcryptCost),

		CircuitBreakerThreshold: int32(getIntEnv("CIRCUIT_BREAKER_THRESHOLD", constants.DefaultCircuitBreakerThreshold)),
		CircuitBreakerTimeout:   getDurationEnv("CIRCUIT_BREAKER_TIMEOUT", constants.DefaultCircuitBreakerTimeout),
		CircuitBreakerReset:     getDurationEnv("CIRCUIT_BREAKER_RESET", constants.DefaultCircuitBreakerReset),

		WebSocket: WebSocketConfig{
			WriteWait:   getDurationEnv("WS_WRITE_WAIT", constants.DefaultWebSocketWriteWait),
			PongWait:    getDurationEnv("WS_PONG_WAIT", constants.DefaultWebSocketPongWait),
			PingPeriod:  getDurationEnv("WS_PING_PERIOD", constants.DefaultWebSocketPingPeriod),
			MaxMsgSize:  getInt64Env("WS_MAX_MSG_SIZE", constants.DefaultWebSocketMaxMsgSize),
			SendBufSize: getIntEnv("WS_SEND_BUF_SIZE", constants.DefaultWebSocketSendBufSize),
			AuthTimeout: getDurationEnv("WS_AUTH_TIMEOUT", constants.DefaultWebSocketAuthTimeout),
		},

		LogDir:   getEnv("LOG_DIR", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}, nil
}

func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:   constants.DefaultWebSocketWriteWait,
		PongWait:    constants.DefaultWebSocketPongWait,
		PingPeriod:  constants.DefaultWebSocketPingPeriod,
		MaxMsgSize:  constants.DefaultWebSocketMaxMsgSize,
		SendBufSize: constants.DefaultWebSocketSendBufSize,
		AuthTimeout: constants.DefaultWebSocketAuthTimeout,
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", commonerrors.ErrMissingRequiredEnv.WithCause(fmt.Errorf("%s is not set", key))
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64Env(key string, fallback int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getBoolEnv(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
