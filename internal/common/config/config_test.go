package config

import (
	"errors"
	"testing"
	"time"

	commonerrors "github.com/AlibekovAA/member-chat/internal/common/errors"
)

func TestLoad_MemoryBackendNeedsNoDatabase(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REQUEST_TIMEOUT", "750ms")
	t.Setenv("WS_SEND_BUF_SIZE", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.StorageBackend != StorageBackendMemory {
		t.Errorf("expected memory backend, got %s", cfg.StorageBackend)
	}
	if cfg.RequestTimeout != 750*time.Millisecond {
		t.Errorf("expected 750ms timeout, got %v", cfg.RequestTimeout)
	}
	if cfg.WebSocket.SendBufSize != 256 {
		t.Errorf("expected fallback send buffer 256, got %d", cfg.WebSocket.SendBufSize)
	}
}

func TestLoad_PostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, commonerrors.ErrMissingRequiredEnv) {
		t.Errorf("expected ErrMissingRequiredEnv, got %v", err)
	}
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "redis")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
