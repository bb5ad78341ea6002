// Package merchant holds per-merchant gateway configuration.
package merchant

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/yourorg/sips-gateway/internal/protocol"
)

// ErrNotFound is returned when no configuration exists for a merchant.
var ErrNotFound = errors.New("merchant config not found")

// Config holds static configuration for a merchant.
type Config struct {
	ID string
	// Gateway is the base argument set for every gateway call made for this
	// merchant (merchant_id, merchant_country, pathfile, ...).
	Gateway protocol.Args
	// DefaultCurrency is used when a payment request carries none.
	DefaultCurrency string
}

// Validate checks the configuration can be handed to a gateway client.
func (c Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: merchant id is empty", protocol.ErrInvalidConfiguration)
	}
	return c.Gateway.Validate()
}

// Repository defines an interface for fetching merchant configurations.
type Repository interface {
	Get(merchantID string) (Config, error)
}

// InMemoryRepository is a Repository backed by a map.
type InMemoryRepository struct {
	mu      sync.RWMutex
	configs map[string]Config
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		configs: make(map[string]Config),
	}
}

// AddConfig validates and stores a configuration, replacing any previous one
// for the same merchant.
func (r *InMemoryRepository) AddConfig(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	config.Gateway = protocol.Args{}.Merge(config.Gateway)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[config.ID] = config
	return nil
}

// Get fetches a merchant configuration by ID.
func (r *InMemoryRepository) Get(merchantID string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	config, ok := r.configs[merchantID]
	if !ok {
		return Config{}, fmt.Errorf("%w for ID: %s", ErrNotFound, merchantID)
	}
	config.Gateway = protocol.Args{}.Merge(config.Gateway)
	return config, nil
}

// IDs lists the known merchants in sorted order.
func (r *InMemoryRepository) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.configs))
	for id := range r.configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
