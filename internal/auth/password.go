package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordChecker verifies the login password against either a bcrypt
// hash or a plain value.
type PasswordChecker struct {
	hash  []byte
	plain []byte
}

// NewPasswordChecker prefers hashed when both are set.
func NewPasswordChecker(plain, hashed string) (*PasswordChecker, error) {
	switch {
	case hashed != "":
		if _, err := bcrypt.Cost([]byte(hashed)); err != nil {
			return nil, fmt.Errorf("invalid bcrypt password hash: %w", err)
		}
		return &PasswordChecker{hash: []byte(hashed)}, nil
	case plain != "":
		return &PasswordChecker{plain: []byte(plain)}, nil
	default:
		return nil, errors.New("a password or password hash is required")
	}
}

// Check reports whether password is correct.
func (c *PasswordChecker) Check(password string) bool {
	if c.hash != nil {
		return bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare(c.plain, []byte(password)) == 1
}
