// Package provider contains the HTTP clients for the external content
// libraries and the registry the gateway dispatches through.
package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/maktabahq/maktaba/internal/model"
)

// Provider fetches books from one external library.
type Provider interface {
	// Library returns the tag this provider serves.
	Library() model.Library

	// FetchBook retrieves and normalizes a single book. Upstream failures
	// surface as *UpstreamError.
	FetchBook(ctx context.Context, bookID string) (*model.Book, error)
}

// UpstreamError reports a provider request that failed. The upstream
// response body is never carried, only the status.
type UpstreamError struct {
	Library    model.Library
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Library, e.Err)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Library, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Registry maps library tags to providers. Registration happens at startup;
// lookups happen on every gateway request.
type Registry struct {
	mu        sync.RWMutex
	providers map[model.Library]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[model.Library]Provider)}
}

// Register adds or replaces the provider for its library.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Library()] = p
}

// Get returns the provider for a library.
func (r *Registry) Get(lib model.Library) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[lib]
	if !ok {
		return nil, fmt.Errorf("no provider registered for %s", lib)
	}
	return p, nil
}

// Libraries returns the registered library tags in stable order.
func (r *Registry) Libraries() []model.Library {
	r.mu.RLock()
	defer r.mu.RUnlock()
	libs := make([]model.Library, 0, len(r.providers))
	for lib := range r.providers {
		libs = append(libs, lib)
	}
	sort.Slice(libs, func(i, j int) bool { return libs[i] < libs[j] })
	return libs
}
