// Package password wraps bcrypt hashing and verification for stored
// credentials. Comparison is performed by bcrypt itself and is safe against
// timing analysis; a wrong password is a boolean result, never an error.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrHashMalformed is returned when the stored hash cannot be interpreted as
// a bcrypt hash at all. This is an internal fault, not a credential failure.
var ErrHashMalformed = errors.New("malformed password hash")

// Bcrypt hashes and verifies passwords with a fixed cost.
type Bcrypt struct {
	cost int
}

// NewBcrypt validates cost and returns a hasher. Zero selects the bcrypt
// default cost.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt cost out of range")
	}
	return &Bcrypt{cost: cost}, nil
}

// Hash derives a salted hash from password.
func (b *Bcrypt) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether password matches encodedHash. A mismatch returns
// (false, nil); only an uninterpretable hash produces an error.
func (b *Bcrypt) Verify(password, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, errors.Join(ErrHashMalformed, err)
	}
}
