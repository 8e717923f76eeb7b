package library

import (
	"context"
	"log/slog"
	"time"

	"github.com/rotisserie/eris"

	"github.com/opensource-finance/tagspec/internal/domain"
)

// Store serves a tenant's rule collection from the snapshot cache, falling
// back to the repository. Writes go to the repository and drop the snapshot.
type Store struct {
	repo  domain.Repository
	cache domain.Cache
	ttl   time.Duration
}

// NewStore creates a store. cache may be nil.
func NewStore(repo domain.Repository, cache domain.Cache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Store{repo: repo, cache: cache, ttl: ttl}
}

// Libraries returns the tenant's libraries in collection order.
func (s *Store) Libraries(ctx context.Context, tenantID string) ([]domain.RuleLibrary, error) {
	if s.cache != nil {
		libs, err := s.cache.GetLibraries(ctx, tenantID)
		if err != nil {
			slog.Warn("library snapshot unavailable", "tenant_id", tenantID, "error", err)
		} else if libs != nil {
			return libs, nil
		}
	}

	libs, err := s.repo.ListLibraries(ctx, tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "load libraries")
	}

	if s.cache != nil {
		if err := s.cache.SetLibraries(ctx, tenantID, libs, s.ttl); err != nil {
			slog.Warn("failed to cache library snapshot", "tenant_id", tenantID, "error", err)
		}
	}
	return libs, nil
}

// Collection returns the tenant's libraries as an editable collection.
func (s *Store) Collection(ctx context.Context, tenantID string) (Collection, error) {
	libs, err := s.Libraries(ctx, tenantID)
	if err != nil {
		return Collection{}, err
	}
	return NewCollection(libs), nil
}

// Replace persists c as the tenant's whole collection.
func (s *Store) Replace(ctx context.Context, tenantID string, c Collection) error {
	if err := s.repo.ReplaceLibraries(ctx, tenantID, c.Libraries()); err != nil {
		return eris.Wrap(err, "replace libraries")
	}
	return s.Invalidate(ctx, tenantID)
}

// Invalidate drops the tenant's cached snapshot.
func (s *Store) Invalidate(ctx context.Context, tenantID string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, tenantID, domain.LibrariesCacheKey); err != nil {
		return eris.Wrap(err, "invalidate library snapshot")
	}
	return nil
}
