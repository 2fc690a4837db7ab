package operator

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("operator not found")
	ErrExists             = errors.New("operator already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Operator may sign in to trigger training and rating imports.
type Operator struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
