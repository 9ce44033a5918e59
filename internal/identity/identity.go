// Package identity verifies bearer tokens issued by the configured identity provider.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidToken is returned for missing, malformed, expired or revoked tokens.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the verified subject of a bearer token.
type Identity struct {
	ID    uuid.UUID
	Email string
	Name  string
	Phone string
}

// Verifier validates a bearer token and returns the identity it was issued for.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// fromMetadata fills the optional profile hints carried in user_metadata.
func fromMetadata(id uuid.UUID, email string, metadata map[string]interface{}) *Identity {
	ident := &Identity{ID: id, Email: email}
	if name, ok := metadata["name"].(string); ok {
		ident.Name = name
	}
	if phone, ok := metadata["phone_number"].(string); ok {
		ident.Phone = phone
	}
	return ident
}

func parseSubject(sub string) (uuid.UUID, error) {
	id, err := uuid.Parse(sub)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return id, nil
}
