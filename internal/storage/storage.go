package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/eugenenazirov/knapsack/internal/knapsack"
)

var (
	// ErrInvalidLimits indicates the provided solver limits violate validation rules.
	ErrInvalidLimits = errors.New("limits need width 8, 16, 32 or 64, a positive maxCapacity and maxCells between 1 and 67108864")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Storage provides access to the limits applied to every solve.
type Storage interface {
	GetLimits() (knapsack.Limits, error)
	SetLimits(limits knapsack.Limits) error
}

// MemoryStorage keeps limits in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu     sync.RWMutex
	limits knapsack.Limits
}

// NewMemoryStorage initialises storage with the default limits.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		limits: knapsack.DefaultLimits(),
	}
}

// DefaultLimits returns the limits a fresh store starts with.
func DefaultLimits() knapsack.Limits {
	return knapsack.DefaultLimits()
}

// GetLimits returns the currently configured limits.
func (s *MemoryStorage) GetLimits() (knapsack.Limits, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.limits, nil
}

// SetLimits validates and stores the provided limits.
func (s *MemoryStorage) SetLimits(limits knapsack.Limits) error {
	if err := ValidateLimits(limits); err != nil {
		return err
	}

	s.mu.Lock()
	s.limits = limits
	s.mu.Unlock()

	return nil
}

// ValidateLimits reports the first rule the limits break, wrapped in ErrInvalidLimits.
func ValidateLimits(limits knapsack.Limits) error {
	if err := validate.Struct(limits); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidLimits, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidLimits, err)
	}
	return nil
}
