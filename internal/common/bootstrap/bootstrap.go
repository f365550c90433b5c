// Package bootstrap assembles the application from its configuration: the
// storage backend, the services, the websocket hub and the root handler.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accountrepo "github.com/AlibekovAA/member-chat/internal/account/repository"
	authhttp "github.com/AlibekovAA/member-chat/internal/auth/http"
	authrepo "github.com/AlibekovAA/member-chat/internal/auth/repository"
	authservice "github.com/AlibekovAA/member-chat/internal/auth/service"
	chathttp "github.com/AlibekovAA/member-chat/internal/chat/http"
	chatrepo "github.com/AlibekovAA/member-chat/internal/chat/repository"
	chatservice "github.com/AlibekovAA/member-chat/internal/chat/service"
	"github.com/AlibekovAA/member-chat/internal/chat/websocket"
	"github.com/AlibekovAA/member-chat/internal/common/clock"
	"github.com/AlibekovAA/member-chat/internal/common/config"
	"github.com/AlibekovAA/member-chat/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/member-chat/internal/common/crypto"
	"github.com/AlibekovAA/member-chat/internal/common/db"
	commonhttp "github.com/AlibekovAA/member-chat/internal/common/http"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
	"github.com/AlibekovAA/member-chat/internal/common/resilience"
	"github.com/AlibekovAA/member-chat/internal/common/server"
	profilehttp "github.com/AlibekovAA/member-chat/internal/profile/http"
	profileservice "github.com/AlibekovAA/member-chat/internal/profile/service"
	"github.com/AlibekovAA/member-chat/internal/storage/memory"
)

type stores struct {
	accounts accountrepo.Repository
	tokens   authrepo.TokenRepository
	tx       authrepo.TxManager
	messages chatrepo.Repository
}

type App struct {
	Config  config.AppConfig
	Log     *logger.Logger
	Handler http.Handler

	Sessions *authservice.SessionService
	Hub      *websocket.Hub

	pool   *pgxpool.Pool
	cancel context.CancelFunc
}

// New connects the configured backend and wires every component. The hub is
// already running when New returns; Close or the shutdown hooks stop it.
func New(ctx context.Context, cfg config.AppConfig, log *logger.Logger) (*App, error) {
	bgCtx, cancel := context.WithCancel(context.Background())
	app := &App{Config: cfg, Log: log, cancel: cancel}

	keys := commoncrypto.NewRandomKeyGenerator()

	var st stores
	var checks []commonhttp.HealthCheck
	switch cfg.StorageBackend {
	case config.StorageBackendPostgres:
		pool, err := db.NewPool(ctx, log, cfg.DatabaseURL)
		if err != nil {
			cancel()
			return nil, err
		}
		app.pool = pool

		if cfg.MigrateOnStart {
			if err := db.Migrate(ctx, pool, log); err != nil {
				pool.Close()
				cancel()
				return nil, fmt.Errorf("failed to apply migrations: %w", err)
			}
		}
		db.StartPoolMetrics(bgCtx, pool, constants.DBPoolMetricsInterval)
		checks = append(checks, pool.Ping)

		st = stores{
			accounts: accountrepo.NewPgRepository(pool),
			tokens:   authrepo.NewPgTokenRepository(pool, keys),
			tx:       authrepo.NewPgTxManager(pool, keys),
			messages: chatrepo.NewPgRepository(pool, log),
		}

	case config.StorageBackendMemory:
		store := memory.NewStore(clock.NewRealClock(), keys)
		st = stores{
			accounts: store.Accounts(),
			tokens:   store.Tokens(),
			tx:       store.TxManager(),
			messages: store.Messages(),
		}
		log.Warn("using in-memory storage: data is lost on restart")

	default:
		cancel()
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}

	authBreaker := newBreaker(cfg, log, "auth", authservice.IsExpectedStoreError)
	chatBreaker := newBreaker(cfg, log, "chat", chatservice.IsExpectedStoreError)

	sessions := authservice.NewSessionService(
		st.accounts,
		st.tokens,
		st.tx,
		commoncrypto.NewBcryptHasher(cfg.BcryptCost),
		commoncrypto.NewUUIDGenerator(),
		authBreaker,
		log,
	)
	authenticator := authservice.NewAuthenticator(st.tokens, st.accounts, authBreaker, log)
	profiles := profileservice.NewService(st.accounts, authBreaker, log)

	hub := websocket.NewHub(log)
	go hub.Run()
	sessions.AddRevocationListener(hub)

	chat := chatservice.NewChatService(st.messages, hub, chatBreaker, log)

	mux := http.NewServeMux()
	mux.Handle("/api/auth/", authhttp.NewHandler(sessions, authenticator, cfg.RequestTimeout, log))
	mux.Handle("/api/profile", profilehttp.NewHandler(profiles, authenticator, cfg.RequestTimeout, log))
	mux.Handle("/api/chat/", chathttp.NewHandler(chat, authenticator, cfg.RequestTimeout, log))
	mux.Handle("/ws/chat", websocket.NewHandler(hub, authenticator, cfg.WebSocket, log))
	mux.HandleFunc("/health", commonhttp.HealthHandler(log, checks...))
	mux.Handle("/metrics", promhttp.Handler())

	app.Handler = commonhttp.BuildBaseHandler(log, mux)
	app.Sessions = sessions
	app.Hub = hub
	return app, nil
}

func newBreaker(cfg config.AppConfig, log *logger.Logger, name string, expected func(error) bool) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  cfg.CircuitBreakerThreshold,
		Timeout:    cfg.CircuitBreakerTimeout,
		ResetAfter: cfg.CircuitBreakerReset,
		Name:       name,
		IsExpected: expected,
		Logger:     log,
	})
}

// ShutdownHooks disconnects websocket clients first and releases storage last.
func (a *App) ShutdownHooks() []server.ShutdownHook {
	return []server.ShutdownHook{
		func(ctx context.Context) error {
			a.Log.Infof("closing websocket connections: active=%d", a.Hub.ClientCount())
			return a.Hub.Shutdown(ctx)
		},
		func(context.Context) error {
			a.cancel()
			if a.pool != nil {
				a.pool.Close()
			}
			return nil
		},
	}
}

// Close runs the shutdown hooks directly. Used by tests and by main when the
// server never started.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	for _, hook := range a.ShutdownHooks() {
		if err := hook(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
