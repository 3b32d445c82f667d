package auth

import (
	"golang.org/x/crypto/bcrypt"

	"chathub/pkg/errdefs"
)

// HashPassword hashes a plaintext password with bcrypt at the given
// cost. Cost zero uses the bcrypt default.
func HashPassword(plain string, cost int) (string, error) {
	if plain == "" {
		return "", errdefs.Validationf("password is required")
	}
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword checks a plaintext password against a stored hash. A
// mismatch is reported as an authentication error.
func VerifyPassword(hash, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return errdefs.Authenticationf("invalid credentials")
	}
	return nil
}
