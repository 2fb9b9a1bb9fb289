package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword will generate a password hash. The output embeds the
// algorithm, cost and a random salt, so verification needs no separate salt.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password. Malformed hashes report a
// mismatch, never a panic.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// GenerateSalt produces a random salt for the legacy password_salt column.
// bcrypt embeds its own salt; this value exists only for schema
// compatibility and is ignored by verification.
func GenerateSalt() string {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(salt)
}

// RandomPasswordHash is a temporary password
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}
