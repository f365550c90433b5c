package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AlibekovAA/member-chat/internal/account/domain"
	"github.com/AlibekovAA/member-chat/internal/common/db"
)

var (
	ErrAccountNotFound       = errors.New("account not found")
	ErrUsernameAlreadyExists = errors.New("username already exists")
)

const usernameUniqueConstraint = "accounts_username_unique"

// Repository is the credential store. Username uniqueness is enforced by the
// storage itself, so concurrent creates for one name cannot both succeed.
type Repository interface {
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	FindByUsername(ctx context.Context, username string) (domain.Account, error)
	FindByID(ctx context.Context, id domain.ID) (domain.Account, error)
	UpdateUsername(ctx context.Context, id domain.ID, username string) (domain.Account, error)
	// Lock holds the account row until the surrounding transaction ends.
	Lock(ctx context.Context, id domain.ID) error
}

type PgRepository struct {
	db db.DBTX
}

func NewPgRepository(conn db.DBTX) *PgRepository {
	return &PgRepository{db: conn}
}

const accountColumns = `id, username, password_hash, created_at, updated_at`

func (r *PgRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	start := time.Now()
	row := r.db.QueryRow(
		ctx,
		`INSERT INTO accounts (id, username, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING `+accountColumns,
		string(account.ID),
		account.Username,
		account.PasswordHash,
	)

	created, err := scanAccount(row)
	if err != nil {
		if db.IsUniqueViolation(err, usernameUniqueConstraint) {
			db.MeasureQueryDuration("create account", start)
			return domain.Account{}, ErrUsernameAlreadyExists
		}
		return domain.Account{}, db.HandleQueryError(err, ErrAccountNotFound, "create account", start)
	}
	db.MeasureQueryDuration("create account", start)
	return created, nil
}

func (r *PgRepository) FindByUsername(ctx context.Context, username string) (domain.Account, error) {
	start := time.Now()
	row := r.db.QueryRow(
		ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`,
		username,
	)

	account, err := scanAccount(row)
	if err := db.HandleQueryError(err, ErrAccountNotFound, "find account by username", start); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

func (r *PgRepository) FindByID(ctx context.Context, id domain.ID) (domain.Account, error) {
	start := time.Now()
	row := r.db.QueryRow(
		ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`,
		string(id),
	)

	account, err := scanAccount(row)
	if err := db.HandleQueryError(err, ErrAccountNotFound, "find account by id", start); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

func (r *PgRepository) UpdateUsername(ctx context.Context, id domain.ID, username string) (domain.Account, error) {
	start := time.Now()
	row := r.db.QueryRow(
		ctx,
		`UPDATE accounts
		 SET username = $2, updated_at = GREATEST(now(), updated_at + interval '1 microsecond')
		 WHERE id = $1
		 RETURNING `+accountColumns,
		string(id),
		username,
	)

	account, err := scanAccount(row)
	if err != nil && db.IsUniqueViolation(err, usernameUniqueConstraint) {
		db.MeasureQueryDuration("update account username", start)
		return domain.Account{}, ErrUsernameAlreadyExists
	}
	if err := db.HandleQueryError(err, ErrAccountNotFound, "update account username", start); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

func (r *PgRepository) Lock(ctx context.Context, id domain.ID) error {
	start := time.Now()
	var locked string
	err := r.db.QueryRow(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, string(id)).Scan(&locked)
	return db.HandleQueryError(err, ErrAccountNotFound, "lock account", start)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		account domain.Account
		id      string
	)
	err := row.Scan(&id, &account.Username, &account.PasswordHash, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return domain.Account{}, err
	}
	account.ID = domain.ID(id)
	return account, nil
}
