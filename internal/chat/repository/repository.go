package repository

import (
	"context"
	"errors"
	"time"

	pgx "github.com/jackc/pgx/v4"

	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
	"github.com/AlibekovAA/member-chat/internal/chat/domain"
	"github.com/AlibekovAA/member-chat/internal/common/db"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
)

var ErrEmptyText = errors.New("message text is empty")

// appendLockKey identifies the advisory lock that serialises feed appends.
const appendLockKey int64 = 0x6d656d6265726368

type Repository interface {
	Append(ctx context.Context, authorID accountdomain.ID, text string) (domain.Message, error)
	ListAll(ctx context.Context) ([]domain.MessageWithAuthor, error)
}

type PgRepository struct {
	pool db.Conn
	log  *logger.Logger
}

func NewPgRepository(pool db.Conn, log *logger.Logger) *PgRepository {
	return &PgRepository{pool: pool, log: log}
}

// Append takes a transaction-scoped advisory lock so ids and created_at are
// assigned in commit order, and bumps created_at past the newest row when
// the clock has not advanced.
func (r *PgRepository) Append(ctx context.Context, authorID accountdomain.ID, text string) (domain.Message, error) {
	if text == "" {
		return domain.Message{}, ErrEmptyText
	}

	msg := domain.Message{AuthorID: authorID, Text: text}

	err := db.Retry(ctx, r.log, db.DefaultRetryConfig, "append message", func() error {
		return db.WithTx(ctx, r.pool, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
			start := time.Now()
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockKey); err != nil {
				return db.HandleExecError(err, "lock message feed", start)
			}

			start = time.Now()
			err := tx.QueryRow(
				ctx,
				`INSERT INTO chat_messages (account_id, text, created_at)
				 VALUES ($1, $2, GREATEST(
					clock_timestamp(),
					(SELECT max(created_at) FROM chat_messages) + interval '1 microsecond'
				 ))
				 RETURNING id, created_at`,
				string(authorID),
				text,
			).Scan(&msg.ID, &msg.CreatedAt)
			return db.HandleExecError(err, "append message", start)
		})
	})
	if err != nil {
		return domain.Message{}, err
	}

	return msg, nil
}

func (r *PgRepository) ListAll(ctx context.Context) ([]domain.MessageWithAuthor, error) {
	start := time.Now()
	rows, err := r.pool.Query(
		ctx,
		`SELECT m.id, m.text, m.created_at,
		        a.id, a.username, a.created_at, a.updated_at
		 FROM chat_messages m
		 JOIN accounts a ON a.id = m.account_id
		 ORDER BY m.created_at ASC, m.id ASC`,
	)
	if err != nil {
		return nil, db.HandleExecError(err, "list messages", start)
	}
	defer rows.Close()

	messages := make([]domain.MessageWithAuthor, 0)
	for rows.Next() {
		var (
			m        domain.MessageWithAuthor
			authorID string
		)
		if err := rows.Scan(
			&m.ID, &m.Text, &m.CreatedAt,
			&authorID, &m.Author.Username, &m.Author.CreatedAt, &m.Author.UpdatedAt,
		); err != nil {
			return nil, db.HandleExecError(err, "scan message", start)
		}
		m.AuthorID = accountdomain.ID(authorID)
		m.Author.ID = m.AuthorID
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, db.HandleExecError(err, "list messages", start)
	}

	db.MeasureQueryDuration("list messages", start)
	return messages, nil
}

var _ Repository = (*PgRepository)(nil)
