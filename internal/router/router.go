// Package router resolves a merchant to the gateway adapter configured for it.
package router

import (
	"fmt"
	"sync"

	"github.com/yourorg/sips-gateway/internal/adapter"
	"github.com/yourorg/sips-gateway/internal/merchant"
)

// Router builds one adapter per merchant configuration and reuses it until the
// configuration changes.
type Router struct {
	repo    merchant.Repository
	factory adapter.Factory

	mu       sync.Mutex
	adapters map[string]cachedAdapter
}

type cachedAdapter struct {
	fingerprint string
	gateway     adapter.GatewayAdapter
}

// NewRouter creates a Router.
func NewRouter(repo merchant.Repository, factory adapter.Factory) *Router {
	if repo == nil {
		panic("merchant repository cannot be nil")
	}
	if factory == nil {
		panic("adapter factory cannot be nil")
	}
	return &Router{
		repo:     repo,
		factory:  factory,
		adapters: make(map[string]cachedAdapter),
	}
}

// Resolve returns the merchant configuration and its gateway adapter.
func (r *Router) Resolve(merchantID string) (merchant.Config, adapter.GatewayAdapter, error) {
	cfg, err := r.repo.Get(merchantID)
	if err != nil {
		return merchant.Config{}, nil, fmt.Errorf("router: %w", err)
	}

	fingerprint := cfg.Gateway.Encode()

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.adapters[merchantID]; ok && cached.fingerprint == fingerprint {
		return cfg, cached.gateway, nil
	}
	gw := r.factory(cfg.Gateway)
	if gw == nil {
		return merchant.Config{}, nil, fmt.Errorf("router: no gateway adapter for merchant %s", merchantID)
	}
	r.adapters[merchantID] = cachedAdapter{fingerprint: fingerprint, gateway: gw}
	return cfg, gw, nil
}
