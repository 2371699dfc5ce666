package credentials

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const minSecretLen = 8

// HashSecret hashes a plaintext user secret using bcrypt.
func HashSecret(secret string) (string, error) {
	if len(secret) < minSecretLen {
		return "", errors.New("secret too short")
	}

	bytes, err := bcrypt.GenerateFromPassword(
		[]byte(secret),
		bcrypt.DefaultCost,
	)
	if err != nil {
		return "", err
	}

	return string(bytes), nil
}

// VerifySecret compares a plaintext secret with the stored hash.
func VerifySecret(hash string, secret string) error {
	return bcrypt.CompareHashAndPassword(
		[]byte(hash),
		[]byte(secret),
	)
}
