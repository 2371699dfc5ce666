package credentials

import (
	"time"

	"review-service/internal/auth"
)

type User struct {
	ID         string    `json:"id"`
	Role       auth.Role `json:"role"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"-"`
}

// Issued is returned once when a secret is generated; the plaintext is
// never stored.
type Issued struct {
	ID         string    `json:"id"`
	Role       auth.Role `json:"role"`
	SessionKey string    `json:"sessionKey"`
}
