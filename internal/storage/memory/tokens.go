package memory

import (
	"context"
	"fmt"

	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
	authdomain "github.com/AlibekovAA/member-chat/internal/auth/domain"
	"github.com/AlibekovAA/member-chat/internal/auth/repository"
	"github.com/AlibekovAA/member-chat/internal/common/constants"
	"github.com/AlibekovAA/member-chat/internal/observability/metrics"
)

type TokenRepository struct {
	store  *Store
	locked bool
}

var _ repository.TokenRepository = (*TokenRepository)(nil)

func (r *TokenRepository) Issue(ctx context.Context, accountID accountdomain.ID) (authdomain.Token, error) {
	var issued authdomain.Token
	err := r.store.view(ctx, r.locked, func(st *state) error {
		if _, ok := st.tokenByAccount[accountID]; ok {
			return repository.ErrActiveTokenExists
		}

		for attempt := 0; attempt < constants.TokenIssueMaxAttempt; attempt++ {
			key, err := r.store.keys.NewKey()
			if err != nil {
				return fmt.Errorf("failed to generate token key: %w", err)
			}
			if _, exists := st.tokens[key]; exists {
				metrics.TokenKeyCollisions.Inc()
				continue
			}

			issued = authdomain.Token{Key: key, AccountID: accountID, CreatedAt: r.store.clock.Now()}
			st.tokens[key] = issued
			st.tokenByAccount[accountID] = key
			metrics.TokensIssued.Inc()
			return nil
		}
		return repository.ErrKeySpaceExhausted
	})
	return issued, err
}

func (r *TokenRepository) FindByKey(ctx context.Context, key string) (authdomain.Token, error) {
	var found authdomain.Token
	err := r.store.view(ctx, r.locked, func(st *state) error {
		token, ok := st.tokens[key]
		if !ok {
			return repository.ErrTokenNotFound
		}
		found = token
		return nil
	})
	return found, err
}

func (r *TokenRepository) RevokeAllForAccount(ctx context.Context, accountID accountdomain.ID) (int64, error) {
	var removed int64
	err := r.store.view(ctx, r.locked, func(st *state) error {
		for key, token := range st.tokens {
			if token.AccountID == accountID {
				delete(st.tokens, key)
				removed++
			}
		}
		delete(st.tokenByAccount, accountID)
		return nil
	})
	metrics.TokensRevoked.Add(float64(removed))
	return removed, err
}

func (r *TokenRepository) Revoke(ctx context.Context, key string) error {
	return r.store.view(ctx, r.locked, func(st *state) error {
		token, ok := st.tokens[key]
		if !ok {
			return nil
		}
		delete(st.tokens, key)
		if st.tokenByAccount[token.AccountID] == key {
			delete(st.tokenByAccount, token.AccountID)
		}
		metrics.TokensRevoked.Inc()
		return nil
	})
}
