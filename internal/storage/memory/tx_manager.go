package memory

import (
	"context"

	accountrepo "github.com/AlibekovAA/member-chat/internal/account/repository"
	authrepo "github.com/AlibekovAA/member-chat/internal/auth/repository"
)

type TxManager struct {
	store *Store
}

var _ authrepo.TxManager = (*TxManager)(nil)

type txStores struct {
	accounts *AccountRepository
	tokens   *TokenRepository
}

func (s txStores) Accounts() accountrepo.Repository { return s.accounts }
func (s txStores) Tokens() authrepo.TokenRepository  { return s.tokens }

func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context, stores authrepo.Stores) error) error {
	return m.store.withTx(ctx, func(ctx context.Context) error {
		return fn(ctx, txStores{
			accounts: &AccountRepository{store: m.store, locked: true},
			tokens:   &TokenRepository{store: m.store, locked: true},
		})
	})
}
