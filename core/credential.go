package core

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost matches a bcrypt work factor of 10 rounds.
const DefaultHashCost = 10

// MaxPasswordBytes is the longest password bcrypt hashes without truncation.
const MaxPasswordBytes = 72

// CredentialHasher hashes and verifies passwords with bcrypt.
// The empty string is the unset credential.
type CredentialHasher struct {
	cost int
}

// NewCredentialHasher returns a hasher for cost; out-of-range costs fall back to DefaultHashCost.
func NewCredentialHasher(cost int) CredentialHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	return CredentialHasher{cost: cost}
}

// Hash returns the unset credential for an empty password and a fresh salted hash otherwise.
func (h CredentialHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	cost := h.cost
	if cost == 0 {
		cost = DefaultHashCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify checks submitted against stored. An unset credential accepts only the empty password.
func (h CredentialHasher) Verify(submitted, stored string) bool {
	if stored == "" {
		return submitted == ""
	}
	// bcrypt compares only the first MaxPasswordBytes, so a longer submission can never be the stored one
	if len(submitted) > MaxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(submitted)) == nil
}
