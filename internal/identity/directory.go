package identity

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("identity not found")

// Identity is the verified player identity supplied by the authentication
// layer. The game core only ever references it; credential issuance and
// token verification live outside this process.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// Directory resolves user ids to display identities.
type Directory interface {
	Lookup(ctx context.Context, userID string) (*Identity, error)
	Put(ctx context.Context, id Identity) error
}
