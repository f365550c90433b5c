// Package dto holds the JSON shapes shared by the HTTP and websocket layers.
package dto

import "time"

type Account struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Author    Account   `json:"author"`
}

type AuthResponse struct {
	Account Account `json:"account"`
	Token   string  `json:"token"`
}
