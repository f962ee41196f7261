package store

import (
	"sort"
	"sync"

	"github.com/rzzdr/swap-aad-risk/pkg/models"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/errors"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

// InMemorySwapStore implements an in-memory swap storage
type InMemorySwapStore struct {
	swaps map[string]*models.SwapSpec
	mu    sync.RWMutex
	log   *logger.Logger
}

// NewInMemorySwapStore creates a new in-memory swap store
func NewInMemorySwapStore() *InMemorySwapStore {
	return &InMemorySwapStore{
		swaps: make(map[string]*models.SwapSpec),
		log:   logger.GetLogger("store.swap"),
	}
}

// GetSwap retrieves a swap by ID. The returned spec is a copy.
func (s *InMemorySwapStore) GetSwap(id string) (*models.SwapSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spec, exists := s.swaps[id]
	if !exists {
		return nil, errors.NotFound("swap not found: " + id)
	}

	return spec.Clone(), nil
}

// GetAllSwaps returns all stored swaps ordered by ID
func (s *InMemorySwapStore) GetAllSwaps() ([]*models.SwapSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	swaps := make([]*models.SwapSpec, 0, len(s.swaps))
	for _, spec := range s.swaps {
		swaps = append(swaps, spec.Clone())
	}
	sort.Slice(swaps, func(i, j int) bool { return swaps[i].ID < swaps[j].ID })

	return swaps, nil
}

// SaveSwap saves or updates a swap
func (s *InMemorySwapStore) SaveSwap(spec *models.SwapSpec) error {
	if spec == nil {
		return errors.InvalidArgument("cannot save nil swap")
	}

	if spec.ID == "" {
		return errors.InvalidArgument("swap ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, replaced := s.swaps[spec.ID]
	s.swaps[spec.ID] = spec.Clone()
	if replaced {
		s.log.Debugf("Replaced swap %s", spec.ID)
	}
	return nil
}

// DeleteSwap removes a swap by ID
func (s *InMemorySwapStore) DeleteSwap(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.swaps[id]; !exists {
		return errors.NotFound("swap not found: " + id)
	}

	delete(s.swaps, id)
	return nil
}
