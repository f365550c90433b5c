package domain

import (
	"time"

	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
)

// Message is one entry of the shared feed. IDs and creation times are both
// strictly increasing in append order.
type Message struct {
	ID        int64
	AuthorID  accountdomain.ID
	Text      string
	CreatedAt time.Time
}

type MessageWithAuthor struct {
	Message
	Author accountdomain.Account
}
