package memory

import (
	"context"
	"time"

	"github.com/AlibekovAA/member-chat/internal/account/domain"
	"github.com/AlibekovAA/member-chat/internal/account/repository"
)

type AccountRepository struct {
	store  *Store
	locked bool
}

var _ repository.Repository = (*AccountRepository)(nil)

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	var created domain.Account
	err := r.store.view(ctx, r.locked, func(st *state) error {
		if _, taken := st.usernames[account.Username]; taken {
			return repository.ErrUsernameAlreadyExists
		}
		now := r.store.clock.Now()
		account.CreatedAt = now
		account.UpdatedAt = now
		st.accounts[account.ID] = account
		st.usernames[account.Username] = account.ID
		created = account
		return nil
	})
	return created, err
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (domain.Account, error) {
	var found domain.Account
	err := r.store.view(ctx, r.locked, func(st *state) error {
		id, ok := st.usernames[username]
		if !ok {
			return repository.ErrAccountNotFound
		}
		found = st.accounts[id]
		return nil
	})
	return found, err
}

func (r *AccountRepository) FindByID(ctx context.Context, id domain.ID) (domain.Account, error) {
	var found domain.Account
	err := r.store.view(ctx, r.locked, func(st *state) error {
		account, ok := st.accounts[id]
		if !ok {
			return repository.ErrAccountNotFound
		}
		found = account
		return nil
	})
	return found, err
}

func (r *AccountRepository) UpdateUsername(ctx context.Context, id domain.ID, username string) (domain.Account, error) {
	var updated domain.Account
	err := r.store.view(ctx, r.locked, func(st *state) error {
		account, ok := st.accounts[id]
		if !ok {
			return repository.ErrAccountNotFound
		}
		if owner, taken := st.usernames[username]; taken && owner != id {
			return repository.ErrUsernameAlreadyExists
		}

		delete(st.usernames, account.Username)
		account.Username = username
		account.UpdatedAt = later(r.store.clock.Now(), account.UpdatedAt)
		st.accounts[id] = account
		st.usernames[username] = id
		updated = account
		return nil
	})
	return updated, err
}

// Lock only checks existence; the store lock already serialises transactions.
func (r *AccountRepository) Lock(ctx context.Context, id domain.ID) error {
	return r.store.view(ctx, r.locked, func(st *state) error {
		if _, ok := st.accounts[id]; !ok {
			return repository.ErrAccountNotFound
		}
		return nil
	})
}

// later returns now, or prev plus a microsecond when the clock has not moved.
func later(now, prev time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Microsecond)
}
