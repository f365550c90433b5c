package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgx "github.com/jackc/pgx/v4"

	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
	authdomain "github.com/AlibekovAA/member-chat/internal/auth/domain"
	"github.com/AlibekovAA/member-chat/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/member-chat/internal/common/crypto"
	"github.com/AlibekovAA/member-chat/internal/common/db"
	"github.com/AlibekovAA/member-chat/internal/observability/metrics"
)

var (
	ErrTokenNotFound = errors.New("token not found")
	// ErrActiveTokenExists means the account already holds a live token.
	ErrActiveTokenExists = errors.New("account already has an active token")
	ErrKeySpaceExhausted = errors.New("could not generate a unique token key")
)

const accountTokenUniqueConstraint = "auth_tokens_account_unique"

type TokenRepository interface {
	Issue(ctx context.Context, accountID accountdomain.ID) (authdomain.Token, error)
	FindByKey(ctx context.Context, key string) (authdomain.Token, error)
	RevokeAllForAccount(ctx context.Context, accountID accountdomain.ID) (int64, error)
	Revoke(ctx context.Context, key string) error
}

type PgTokenRepository struct {
	db   db.DBTX
	keys commoncrypto.KeyGenerator
}

func NewPgTokenRepository(conn db.DBTX, keys commoncrypto.KeyGenerator) *PgTokenRepository {
	return &PgTokenRepository{db: conn, keys: keys}
}

// Issue inserts a fresh key, regenerating it when it collides with an
// existing one.
func (r *PgTokenRepository) Issue(ctx context.Context, accountID accountdomain.ID) (authdomain.Token, error) {
	for attempt := 0; attempt < constants.TokenIssueMaxAttempt; attempt++ {
		key, err := r.keys.NewKey()
		if err != nil {
			return authdomain.Token{}, fmt.Errorf("failed to generate token key: %w", err)
		}

		start := time.Now()
		token := authdomain.Token{Key: key, AccountID: accountID}
		err = r.db.QueryRow(
			ctx,
			`INSERT INTO auth_tokens (key, account_id)
			 VALUES ($1, $2)
			 ON CONFLICT (key) DO NOTHING
			 RETURNING created_at`,
			key,
			string(accountID),
		).Scan(&token.CreatedAt)

		if errors.Is(err, pgx.ErrNoRows) {
			db.MeasureQueryDuration("issue token", start)
			metrics.TokenKeyCollisions.Inc()
			continue
		}
		if err != nil && db.IsUniqueViolation(err, accountTokenUniqueConstraint) {
			db.MeasureQueryDuration("issue token", start)
			return authdomain.Token{}, ErrActiveTokenExists
		}
		if err := db.HandleExecError(err, "issue token", start); err != nil {
			return authdomain.Token{}, err
		}

		metrics.TokensIssued.Inc()
		return token, nil
	}

	return authdomain.Token{}, ErrKeySpaceExhausted
}

func (r *PgTokenRepository) FindByKey(ctx context.Context, key string) (authdomain.Token, error) {
	start := time.Now()
	var (
		token     authdomain.Token
		accountID string
	)
	err := r.db.QueryRow(
		ctx,
		`SELECT key, account_id, created_at FROM auth_tokens WHERE key = $1`,
		key,
	).Scan(&token.Key, &accountID, &token.CreatedAt)
	if err := db.HandleQueryError(err, ErrTokenNotFound, "find token by key", start); err != nil {
		return authdomain.Token{}, err
	}
	token.AccountID = accountdomain.ID(accountID)
	return token, nil
}

func (r *PgTokenRepository) RevokeAllForAccount(ctx context.Context, accountID accountdomain.ID) (int64, error) {
	start := time.Now()
	tag, err := r.db.Exec(ctx, `DELETE FROM auth_tokens WHERE account_id = $1`, string(accountID))
	if err := db.HandleExecError(err, "revoke tokens for account", start); err != nil {
		return 0, err
	}
	metrics.TokensRevoked.Add(float64(tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

func (r *PgTokenRepository) Revoke(ctx context.Context, key string) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx, `DELETE FROM auth_tokens WHERE key = $1`, key)
	if err := db.HandleExecError(err, "revoke token", start); err != nil {
		return err
	}
	metrics.TokensRevoked.Add(float64(tag.RowsAffected()))
	return nil
}
