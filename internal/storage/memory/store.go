// Package memory holds process-local implementations of the account, token
// and message stores. All three share one lock so a transaction can span
// them, which keeps the uniqueness and ordering guarantees of the Postgres
// backend.
package memory

import (
	"context"
	"sync"
	"time"

	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
	authdomain "github.com/AlibekovAA/member-chat/internal/auth/domain"
	chatdomain "github.com/AlibekovAA/member-chat/internal/chat/domain"
	"github.com/AlibekovAA/member-chat/internal/common/clock"
	commoncrypto "github.com/AlibekovAA/member-chat/internal/common/crypto"
)

type Store struct {
	mu    sync.Mutex
	clock clock.Clock
	keys  commoncrypto.KeyGenerator
	st    *state
}

type state struct {
	accounts       map[accountdomain.ID]accountdomain.Account
	usernames      map[string]accountdomain.ID
	tokens         map[string]authdomain.Token
	tokenByAccount map[accountdomain.ID]string
	messages       []chatdomain.Message
	lastMessageID  int64
	lastMessageAt  time.Time
}

func newState() *state {
	return &state{
		accounts:       make(map[accountdomain.ID]accountdomain.Account),
		usernames:      make(map[string]accountdomain.ID),
		tokens:         make(map[string]authdomain.Token),
		tokenByAccount: make(map[accountdomain.ID]string),
	}
}

func (s *state) clone() *state {
	c := &state{
		accounts:       make(map[accountdomain.ID]accountdomain.Account, len(s.accounts)),
		usernames:      make(map[string]accountdomain.ID, len(s.usernames)),
		tokens:         make(map[string]authdomain.Token, len(s.tokens)),
		tokenByAccount: make(map[accountdomain.ID]string, len(s.tokenByAccount)),
		messages:       append([]chatdomain.Message(nil), s.messages...),
		lastMessageID:  s.lastMessageID,
		lastMessageAt:  s.lastMessageAt,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.usernames {
		c.usernames[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for k, v := range s.tokenByAccount {
		c.tokenByAccount[k] = v
	}
	return c
}

func NewStore(clk clock.Clock, keys commoncrypto.KeyGenerator) *Store {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if keys == nil {
		keys = commoncrypto.NewRandomKeyGenerator()
	}
	return &Store{clock: clk, keys: keys, st: newState()}
}

// view runs fn against the current state, taking the store lock unless the
// caller already holds it inside WithTx.
func (s *Store) view(ctx context.Context, locked bool, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !locked {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.st)
}

// WithTx runs fn with exclusive access to every store. State changes made by
// fn are discarded if it returns an error or panics.
func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	defer func() {
		if p := recover(); p != nil {
			s.st = snapshot
			panic(p)
		}
		if err != nil {
			s.st = snapshot
		}
	}()

	err = fn(ctx)
	return err
}

func (s *Store) Accounts() *AccountRepository {
	return &AccountRepository{store: s}
}

func (s *Store) Tokens() *TokenRepository {
	return &TokenRepository{store: s}
}

func (s *Store) Messages() *MessageRepository {
	return &MessageRepository{store: s}
}

func (s *Store) TxManager() *TxManager {
	return &TxManager{store: s}
}
