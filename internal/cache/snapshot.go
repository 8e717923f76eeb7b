package cache

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/opensource-finance/tagspec/internal/domain"
	"github.com/opensource-finance/tagspec/internal/library"
)

type byteStore interface {
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error
}

// loadLibraries reads the tenant's collection snapshot. A missing snapshot
// yields nil without error.
func loadLibraries(ctx context.Context, s byteStore, tenantID string) ([]domain.RuleLibrary, error) {
	data, err := s.Get(ctx, tenantID, domain.LibrariesCacheKey)
	if err != nil || data == nil {
		return nil, err
	}

	libs, err := library.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "decode cached libraries")
	}
	return libs, nil
}

// storeLibraries writes libs as the tenant's snapshot in the collection
// document format.
func storeLibraries(ctx context.Context, s byteStore, tenantID string, libs []domain.RuleLibrary, ttl time.Duration) error {
	data, err := library.Marshal(libs)
	if err != nil {
		return eris.Wrap(err, "encode libraries")
	}
	return s.Set(ctx, tenantID, domain.LibrariesCacheKey, data, ttl)
}
