package memory

import (
	"context"
	"sort"
	"time"

	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
	"github.com/AlibekovAA/member-chat/internal/chat/domain"
	"github.com/AlibekovAA/member-chat/internal/chat/repository"
)

type MessageRepository struct {
	store *Store
}

var _ repository.Repository = (*MessageRepository)(nil)

func (r *MessageRepository) Append(ctx context.Context, authorID accountdomain.ID, text string) (domain.Message, error) {
	if text == "" {
		return domain.Message{}, repository.ErrEmptyText
	}

	var msg domain.Message
	err := r.store.view(ctx, false, func(st *state) error {
		st.lastMessageID++
		createdAt := r.store.clock.Now()
		if !st.lastMessageAt.IsZero() && !createdAt.After(st.lastMessageAt) {
			createdAt = st.lastMessageAt.Add(time.Microsecond)
		}
		st.lastMessageAt = createdAt

		msg = domain.Message{
			ID:        st.lastMessageID,
			AuthorID:  authorID,
			Text:      text,
			CreatedAt: createdAt,
		}
		st.messages = append(st.messages, msg)
		return nil
	})
	return msg, err
}

func (r *MessageRepository) ListAll(ctx context.Context) ([]domain.MessageWithAuthor, error) {
	var out []domain.MessageWithAuthor
	err := r.store.view(ctx, false, func(st *state) error {
		out = make([]domain.MessageWithAuthor, 0, len(st.messages))
		for _, m := range st.messages {
			author, ok := st.accounts[m.AuthorID]
			if !ok {
				continue
			}
			out = append(out, domain.MessageWithAuthor{Message: m, Author: author})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
