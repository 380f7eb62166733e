package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminCost matches the cost the admin bootstrap has always used.
const AdminCost = 12

var ErrPlaintextPassword = errors.New("stored password is not a bcrypt hash")

func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func IsBcryptHash(stored string) bool {
	if !strings.HasPrefix(stored, "$2") {
		return false
	}
	_, err := bcrypt.Cost([]byte(stored))
	return err == nil
}

// CheckPassword compares password with a stored hash. Plaintext values are
// never compared.
func CheckPassword(stored, password string) error {
	if !IsBcryptHash(stored) {
		return ErrPlaintextPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
}

// MigratePasswords hashes every stored password that is still plaintext.
// It returns the number of rewritten accounts.
func MigratePasswords(ctx context.Context, repo Repo, cost int, log *zap.Logger) (int, error) {
	users, err := repo.ListUsers(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, u := range users {
		if IsBcryptHash(u.PasswordHash) {
			continue
		}
		hash, err := HashPassword(strings.TrimSpace(u.PasswordHash), cost)
		if err != nil {
			return n, err
		}
		if err := repo.UpdatePasswordHash(ctx, u.Email, hash); err != nil {
			return n, fmt.Errorf("migrate %s: %w", u.Email, err)
		}
		log.Info("password hashed", zap.String("email", u.Email))
		n++
	}
	return n, nil
}
