package domain

import (
	"time"

	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
)

// Token is an opaque bearer credential bound to one account.
type Token struct {
	Key       string
	AccountID accountdomain.ID
	CreatedAt time.Time
}

// Principal is the result of a successful authentication: the caller's
// account and the exact token it presented.
type Principal struct {
	Account accountdomain.Account
	Token   Token
}
