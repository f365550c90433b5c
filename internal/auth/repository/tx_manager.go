package repository

import (
	"context"

	pgx "github.com/jackc/pgx/v4"

	accountrepo "github.com/AlibekovAA/member-chat/internal/account/repository"
	commoncrypto "github.com/AlibekovAA/member-chat/internal/common/crypto"
	"github.com/AlibekovAA/member-chat/internal/common/db"
)

// Stores exposes the credential and token stores bound to one transaction.
type Stores interface {
	Accounts() accountrepo.Repository
	Tokens() TokenRepository
}

type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

type pgStores struct {
	accounts *accountrepo.PgRepository
	tokens   *PgTokenRepository
}

func (s pgStores) Accounts() accountrepo.Repository { return s.accounts }
func (s pgStores) Tokens() TokenRepository          { return s.tokens }

type PgTxManager struct {
	pool db.TxBeginner
	keys commoncrypto.KeyGenerator
}

func NewPgTxManager(pool db.TxBeginner, keys commoncrypto.KeyGenerator) *PgTxManager {
	return &PgTxManager{pool: pool, keys: keys}
}

func (m *PgTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	return db.WithTx(ctx, m.pool, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, pgStores{
			accounts: accountrepo.NewPgRepository(tx),
			tokens:   NewPgTokenRepository(tx, m.keys),
		})
	})
}
