package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/Aashay2112/chat-app/pkg/model"
)

const bcryptCost = 10

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", model.Validation("password is too long")
		}
		return "", model.Dependency(err, "hash password")
	}
	return string(hash), nil
}

// CheckPassword answers Unauthorized for any mismatch.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return model.Unauthorized("invalid credentials")
	}
	return nil
}
