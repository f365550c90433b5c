package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
	accountrepo "github.com/AlibekovAA/member-chat/internal/account/repository"
	authrepo "github.com/AlibekovAA/member-chat/internal/auth/repository"
	chatrepo "github.com/AlibekovAA/member-chat/internal/chat/repository"
	"github.com/AlibekovAA/member-chat/internal/common/clock"
)

type sequenceKeys struct {
	mu   sync.Mutex
	keys []string
	next int
}

func (g *sequenceKeys) NewKey() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next >= len(g.keys) {
		return "", errors.New("out of keys")
	}
	k := g.keys[g.next]
	g.next++
	return k, nil
}

func newTestStore(t *testing.T) (*Store, *clock.MockClock) {
	t.Helper()
	clk := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	return NewStore(clk, nil), clk
}

func createAccount(t *testing.T, s *Store, id, username string) accountdomain.Account {
	t.Helper()
	acc, err := s.Accounts().Create(context.Background(), accountdomain.Account{
		ID:           accountdomain.ID(id),
		Username:     username,
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return acc
}

func TestAccounts_CreateAndFind(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()

	created := createAccount(t, s, "a1", "alice")
	assert.Equal(t, clk.Now(), created.CreatedAt)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	byName, err := s.Accounts().FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created, byName)

	byID, err := s.Accounts().FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, created, byID)

	_, err = s.Accounts().FindByUsername(ctx, "Alice")
	assert.ErrorIs(t, err, accountrepo.ErrAccountNotFound)
}

func TestAccounts_DuplicateUsername(t *testing.T) {
	s, _ := newTestStore(t)
	createAccount(t, s, "a1", "alice")

	_, err := s.Accounts().Create(context.Background(), accountdomain.Account{ID: "a2", Username: "alice"})
	assert.ErrorIs(t, err, accountrepo.ErrUsernameAlreadyExists)
}

func TestAccounts_ConcurrentCreateSameUsername(t *testing.T) {
	s, _ := newTestStore(t)

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Accounts().Create(context.Background(), accountdomain.Account{
				ID:       accountdomain.ID(fmt.Sprintf("id-%d", i)),
				Username: "same",
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var ok, dup int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, accountrepo.ErrUsernameAlreadyExists):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dup)
}

func TestAccounts_UpdateUsername(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()
	alice := createAccount(t, s, "a1", "alice")
	createAccount(t, s, "b1", "bob")

	_, err := s.Accounts().UpdateUsername(ctx, "a1", "bob")
	assert.ErrorIs(t, err, accountrepo.ErrUsernameAlreadyExists)

	same, err := s.Accounts().UpdateUsername(ctx, "a1", "alice")
	require.NoError(t, err)
	assert.True(t, same.UpdatedAt.After(alice.UpdatedAt))

	clk.Advance(time.Minute)
	renamed, err := s.Accounts().UpdateUsername(ctx, "a1", "carol")
	require.NoError(t, err)
	assert.Equal(t, "carol", renamed.Username)
	assert.Equal(t, clk.Now(), renamed.UpdatedAt)

	_, err = s.Accounts().FindByUsername(ctx, "alice")
	assert.ErrorIs(t, err, accountrepo.ErrAccountNotFound)

	_, err = s.Accounts().UpdateUsername(ctx, "missing", "dave")
	assert.ErrorIs(t, err, accountrepo.ErrAccountNotFound)
}

func TestTokens_IssueLookupRevoke(t *testing.T) {
	keys := &sequenceKeys{keys: []string{"k1", "k2"}}
	s := NewStore(clock.NewMockClock(time.Now()), keys)
	ctx := context.Background()
	createAccount(t, s, "a1", "alice")

	tok, err := s.Tokens().Issue(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "k1", tok.Key)

	_, err = s.Tokens().Issue(ctx, "a1")
	assert.ErrorIs(t, err, authrepo.ErrActiveTokenExists)

	found, err := s.Tokens().FindByKey(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, accountdomain.ID("a1"), found.AccountID)

	require.NoError(t, s.Tokens().Revoke(ctx, "k1"))
	require.NoError(t, s.Tokens().Revoke(ctx, "k1"))

	_, err = s.Tokens().FindByKey(ctx, "k1")
	assert.ErrorIs(t, err, authrepo.ErrTokenNotFound)

	tok, err = s.Tokens().Issue(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "k2", tok.Key)
}

func TestTokens_KeyCollisionRegenerates(t *testing.T) {
	keys := &sequenceKeys{keys: []string{"dup", "dup", "fresh"}}
	s := NewStore(nil, keys)
	ctx := context.Background()
	createAccount(t, s, "a1", "alice")
	createAccount(t, s, "b1", "bob")

	_, err := s.Tokens().Issue(ctx, "a1")
	require.NoError(t, err)

	tok, err := s.Tokens().Issue(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.Key)
}

func TestTokens_KeySpaceExhausted(t *testing.T) {
	keys := &sequenceKeys{keys: []string{"dup", "dup", "dup", "dup", "dup", "dup"}}
	s := NewStore(nil, keys)
	ctx := context.Background()
	createAccount(t, s, "a1", "alice")
	createAccount(t, s, "b1", "bob")

	_, err := s.Tokens().Issue(ctx, "a1")
	require.NoError(t, err)

	_, err = s.Tokens().Issue(ctx, "b1")
	assert.ErrorIs(t, err, authrepo.ErrKeySpaceExhausted)
}

func TestTokens_RevokeAllForAccount(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	createAccount(t, s, "a1", "alice")

	n, err := s.Tokens().RevokeAllForAccount(ctx, "a1")
	require.NoError(t, err)
	assert.Zero(t, n)

	tok, err := s.Tokens().Issue(ctx, "a1")
	require.NoError(t, err)

	n, err = s.Tokens().RevokeAllForAccount(ctx, "a1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.Tokens().FindByKey(ctx, tok.Key)
	assert.ErrorIs(t, err, authrepo.ErrTokenNotFound)
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.TxManager().WithTx(ctx, func(ctx context.Context, stores authrepo.Stores) error {
		if _, err := stores.Accounts().Create(ctx, accountdomain.Account{ID: "a1", Username: "alice"}); err != nil {
			return err
		}
		if _, err := stores.Tokens().Issue(ctx, "a1"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Accounts().FindByUsername(ctx, "alice")
	assert.ErrorIs(t, err, accountrepo.ErrAccountNotFound)
}

func TestTxManager_RollsBackOnPanic(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.TxManager().WithTx(ctx, func(ctx context.Context, stores authrepo.Stores) error {
			_, _ = stores.Accounts().Create(ctx, accountdomain.Account{ID: "a1", Username: "alice"})
			panic("boom")
		})
	})

	_, err := s.Accounts().FindByID(ctx, "a1")
	assert.ErrorIs(t, err, accountrepo.ErrAccountNotFound)
}

func TestTxManager_ConcurrentLoginsKeepOneToken(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	createAccount(t, s, "a1", "alice")

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.TxManager().WithTx(ctx, func(ctx context.Context, stores authrepo.Stores) error {
				if _, err := stores.Tokens().RevokeAllForAccount(ctx, "a1"); err != nil {
					return err
				}
				_, err := stores.Tokens().Issue(ctx, "a1")
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Len(t, s.st.tokens, 1)
}

func TestMessages_AppendOrdering(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()
	createAccount(t, s, "a1", "alice")

	first, err := s.Messages().Append(ctx, "a1", "one")
	require.NoError(t, err)

	// clock does not move: the second message must still sort strictly after
	second, err := s.Messages().Append(ctx, "a1", "two")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
	assert.True(t, second.CreatedAt.After(first.CreatedAt))

	clk.Set(clk.Now().Add(-time.Hour))
	third, err := s.Messages().Append(ctx, "a1", "three")
	require.NoError(t, err)
	assert.True(t, third.CreatedAt.After(second.CreatedAt))

	_, err = s.Messages().Append(ctx, "a1", "")
	assert.ErrorIs(t, err, chatrepo.ErrEmptyText)

	list, err := s.Messages().ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"one", "two", "three"}, []string{list[0].Text, list[1].Text, list[2].Text})
	assert.Equal(t, "alice", list[0].Author.Username)
}

func TestMessages_ConcurrentAppends(t *testing.T) {
	s := NewStore(nil, nil)
	ctx := context.Background()
	createAccount(t, s, "a1", "alice")

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := s.Messages().Append(ctx, "a1", fmt.Sprintf("%d-%d", w, i))
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	list, err := s.Messages().ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, workers*perWorker)
	for i := 1; i < len(list); i++ {
		assert.Greater(t, list[i].ID, list[i-1].ID)
		assert.True(t, list[i].CreatedAt.After(list[i-1].CreatedAt))
	}
}

func TestStore_CanceledContext(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Accounts().FindByUsername(ctx, "alice")
	assert.ErrorIs(t, err, context.Canceled)
}
