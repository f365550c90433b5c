package service_test

import (
	"context"
	"io"
	"sync"
	"testing"

	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
	accountrepo "github.com/AlibekovAA/member-chat/internal/account/repository"
	authdomain "github.com/AlibekovAA/member-chat/internal/auth/domain"
	authrepo "github.com/AlibekovAA/member-chat/internal/auth/repository"
	"github.com/AlibekovAA/member-chat/internal/auth/service"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
)

type mockAccountRepo struct {
	createFunc         func(ctx context.Context, account accountdomain.Account) (accountdomain.Account, error)
	findByUsernameFunc func(ctx context.Context, username string) (accountdomain.Account, error)
	findByIDFunc       func(ctx context.Context, id accountdomain.ID) (accountdomain.Account, error)
	updateUsernameFunc func(ctx context.Context, id accountdomain.ID, username string) (accountdomain.Account, error)
	lockFunc           func(ctx context.Context, id accountdomain.ID) error
}

func (m *mockAccountRepo) Create(ctx context.Context, account accountdomain.Account) (accountdomain.Account, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, account)
	}
	return account, nil
}

func (m *mockAccountRepo) FindByUsername(ctx context.Context, username string) (accountdomain.Account, error) {
	if m.findByUsernameFunc != nil {
		return m.findByUsernameFunc(ctx, username)
	}
	return accountdomain.Account{}, accountrepo.ErrAccountNotFound
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id accountdomain.ID) (accountdomain.Account, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return accountdomain.Account{}, accountrepo.ErrAccountNotFound
}

func (m *mockAccountRepo) UpdateUsername(ctx context.Context, id accountdomain.ID, username string) (accountdomain.Account, error) {
	if m.updateUsernameFunc != nil {
		return m.updateUsernameFunc(ctx, id, username)
	}
	return accountdomain.Account{ID: id, Username: username}, nil
}

func (m *mockAccountRepo) Lock(ctx context.Context, id accountdomain.ID) error {
	if m.lockFunc != nil {
		return m.lockFunc(ctx, id)
	}
	return nil
}

type mockTokenRepo struct {
	issueFunc               func(ctx context.Context, accountID accountdomain.ID) (authdomain.Token, error)
	findByKeyFunc           func(ctx context.Context, key string) (authdomain.Token, error)
	revokeAllForAccountFunc func(ctx context.Context, accountID accountdomain.ID) (int64, error)
	revokeFunc              func(ctx context.Context, key string) error
}

func (m *mockTokenRepo) Issue(ctx context.Context, accountID accountdomain.ID) (authdomain.Token, error) {
	if m.issueFunc != nil {
		return m.issueFunc(ctx, accountID)
	}
	return authdomain.Token{Key: "key-" + string(accountID), AccountID: accountID}, nil
}

func (m *mockTokenRepo) FindByKey(ctx context.Context, key string) (authdomain.Token, error) {
	if m.findByKeyFunc != nil {
		return m.findByKeyFunc(ctx, key)
	}
	return authdomain.Token{}, authrepo.ErrTokenNotFound
}

func (m *mockTokenRepo) RevokeAllForAccount(ctx context.Context, accountID accountdomain.ID) (int64, error) {
	if m.revokeAllForAccountFunc != nil {
		return m.revokeAllForAccountFunc(ctx, accountID)
	}
	return 0, nil
}

func (m *mockTokenRepo) Revoke(ctx context.Context, key string) error {
	if m.revokeFunc != nil {
		return m.revokeFunc(ctx, key)
	}
	return nil
}

type mockStores struct {
	accounts *mockAccountRepo
	tokens   *mockTokenRepo
}

func (s mockStores) Accounts() accountrepo.Repository { return s.accounts }
func (s mockStores) Tokens() authrepo.TokenRepository  { return s.tokens }

// mockTxManager runs fn against the same mocks and counts transactions.
type mockTxManager struct {
	stores mockStores
	calls  int
}

func (m *mockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, stores authrepo.Stores) error) error {
	m.calls++
	return fn(ctx, m.stores)
}

type mockHasher struct {
	hashFunc   func(password string) (string, error)
	verifyFunc func(password, hash string) bool
}

func (m *mockHasher) Hash(password string) (string, error) {
	if m.hashFunc != nil {
		return m.hashFunc(password)
	}
	return "hashed_" + password, nil
}

func (m *mockHasher) Verify(password, hash string) bool {
	if m.verifyFunc != nil {
		return m.verifyFunc(password, hash)
	}
	return hash == "hashed_"+password
}

type mockIDGenerator struct {
	newIDFunc func() (string, error)
}

func (m *mockIDGenerator) NewID() (string, error) {
	if m.newIDFunc != nil {
		return m.newIDFunc()
	}
	return "account-1", nil
}

type recordingListener struct {
	mu       sync.Mutex
	keys     []string
	accounts []accountdomain.ID
	kept     []string
}

func (l *recordingListener) TokenRevoked(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
}

func (l *recordingListener) AccountTokensRevoked(accountID accountdomain.ID, keep string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts = append(l.accounts, accountID)
	l.kept = append(l.kept, keep)
}

type sessionFixture struct {
	svc      *service.SessionService
	accounts *mockAccountRepo
	tokens   *mockTokenRepo
	tx       *mockTxManager
	hasher   *mockHasher
	ids      *mockIDGenerator
	listener *recordingListener
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, "test", "debug")
}

func setupSessionService(t *testing.T) *sessionFixture {
	t.Helper()

	accounts := &mockAccountRepo{}
	tokens := &mockTokenRepo{}
	tx := &mockTxManager{stores: mockStores{accounts: accounts, tokens: tokens}}
	hasher := &mockHasher{}
	ids := &mockIDGenerator{}
	listener := &recordingListener{}

	svc := service.NewSessionService(accounts, tokens, tx, hasher, ids, nil, testLogger())
	svc.AddRevocationListener(listener)

	return &sessionFixture{
		svc:      svc,
		accounts: accounts,
		tokens:   tokens,
		tx:       tx,
		hasher:   hasher,
		ids:      ids,
		listener: listener,
	}
}
