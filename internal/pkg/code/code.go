package code

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// Generate returns a uniformly distributed numeric code of the given length,
// left-padded with zeros (length 6 covers 000000–999999).
func Generate(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// Hasher is a one-way, salted hash for OTP codes. Verification is by
// re-hash-and-compare; the plaintext is never recoverable from the hash.
type Hasher interface {
	Hash(plain string) (string, error)
	Compare(plain, hash string) bool
}

// Bcrypt hashes codes with golang.org/x/crypto/bcrypt. Each hash carries its
// own random salt and the cost parameter is fixed at construction.
type Bcrypt struct {
	cost int
}

func NewBcrypt(cost int) Bcrypt {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return Bcrypt{cost: cost}
}

func (b Bcrypt) Hash(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), b.cost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}
	return string(h), nil
}

func (b Bcrypt) Compare(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
