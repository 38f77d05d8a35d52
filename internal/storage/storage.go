package storage

import (
	"context"
	"pharmacy/internal/model"
)

// Keys under which tokens are persisted.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Storage is the durable side of the token store. It is only read on process
// start; every mutation of the in-memory pair is mirrored here.
type Storage interface {
	Load(ctx context.Context) (model.TokenPair, error)
	SaveAccess(ctx context.Context, access string) error
	SaveRefresh(ctx context.Context, refresh string) error
	Clear(ctx context.Context) error
}

// Save writes both tokens of pair.
func Save(ctx context.Context, s Storage, pair model.TokenPair) error {
	if err := s.SaveAccess(ctx, pair.Access); err != nil {
		return err
	}
	return s.SaveRefresh(ctx, pair.Refresh)
}
