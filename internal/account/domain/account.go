package domain

import "time"

type ID string

type Account struct {
	ID           ID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
