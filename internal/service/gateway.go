package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maktabahq/maktaba/internal/credstore"
	"github.com/maktabahq/maktaba/internal/model"
	"github.com/maktabahq/maktaba/internal/provider"
	"github.com/maktabahq/maktaba/internal/store"
	"github.com/maktabahq/maktaba/internal/validate"
)

// GatewayService is the request-time gate for the public book endpoint.
// Every fetch walks the same strictly sequential path: parse, verify,
// check entitlement, touch, dispatch. No step is retried.
type GatewayService struct {
	store    *store.Store
	creds    credstore.Store
	registry *provider.Registry
	logger   *slog.Logger
}

// NewGatewayService creates a GatewayService.
func NewGatewayService(st *store.Store, creds credstore.Store, registry *provider.Registry, logger *slog.Logger) *GatewayService {
	return &GatewayService{store: st, creds: creds, registry: registry, logger: logger}
}

// FetchBook authenticates the secret, enforces the entitlement snapshot,
// and proxies the lookup to the requested library.
//
// The cheap failures come first: provider tag and book ID are validated
// before any remote call. The credential store is the sole authority on
// key liveness; a revoked key fails here no matter what local metadata
// says.
func (s *GatewayService) FetchBook(ctx context.Context, secret, providerTag, bookID string) (*model.Book, error) {
	if secret == "" {
		return nil, ErrMissingCredential
	}
	if providerTag == "" {
		return nil, &validate.Error{Message: "Missing provider parameter"}
	}
	lib, err := model.ParseLibrary(providerTag)
	if err != nil {
		return nil, &validate.Error{Message: fmt.Sprintf("Invalid library: %s", providerTag)}
	}
	if err := validate.BookID(bookID); err != nil {
		return nil, err
	}

	v, err := s.creds.Verify(ctx, secret)
	if err != nil {
		return nil, fmt.Errorf("verify credential: %w", err)
	}
	if !v.Valid {
		return nil, ErrInvalidCredential
	}

	if !model.ContainsLibrary(v.Libraries, lib) {
		return nil, Forbiddenf("No access to %s", lib)
	}

	// Usage bookkeeping never fails the request.
	go func(keyID string) {
		if err := s.store.TouchAPIKeyLastUsed(context.Background(), keyID); err != nil {
			s.logger.Debug("touch api key last used", "key_id", keyID, "error", err)
		}
	}(v.KeyID)

	p, err := s.registry.Get(lib)
	if err != nil {
		return nil, fmt.Errorf("resolve provider: %w", err)
	}

	book, err := p.FetchBook(ctx, bookID)
	if err != nil {
		s.logger.Warn("provider fetch failed", "library", lib, "book_id", bookID, "error", err)
		return nil, fmt.Errorf("%w: %s", ErrUpstream, lib)
	}
	return book, nil
}

// Libraries returns the registered provider tags, for discovery surfaces.
func (s *GatewayService) Libraries() []model.Library {
	return s.registry.Libraries()
}
