package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"taskflow/internal/model"
)

// ErrInvalidCredential is returned when a connection credential cannot be
// verified. The caller must refuse the connection.
var ErrInvalidCredential = errors.New("invalid credential")

// Identity is the verified user behind a live connection.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// UserLookup is the slice of the user repository identity resolution needs.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Resolver verifies bearer credentials against the user store.
type Resolver struct {
	users UserLookup
}

func NewResolver(users UserLookup) *Resolver {
	return &Resolver{users: users}
}

// ResolveIdentity verifies the token and loads the user it names. A missing
// or malformed token, or a token for an unknown user, yields
// ErrInvalidCredential.
func (r *Resolver) ResolveIdentity(ctx context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return nil, ErrInvalidCredential
	}

	userIDStr, err := ParseToken(credential)
	if err != nil {
		return nil, ErrInvalidCredential
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrInvalidCredential
	}

	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}

	return &Identity{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}, nil
}
