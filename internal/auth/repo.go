package auth

import (
	"context"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an entry of the verification collection.
type User struct {
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repo is implemented by every store backend. GetByEmail returns nil, nil
// for unknown addresses.
type Repo interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpsertUser(ctx context.Context, u User) error
	ListUsers(ctx context.Context) ([]User, error)
	UpdatePasswordHash(ctx context.Context, email, hash string) error
}
