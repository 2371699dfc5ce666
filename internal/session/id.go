package session

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID returns a random login session id. Ids are only ever
// presented inside a signed token, so they need uniqueness, not secrecy.
func GenerateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return id.String(), nil
}
