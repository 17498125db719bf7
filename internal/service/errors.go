package service

import (
	"errors"
	"fmt"

	"neelgund-backend/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidStateTransition  = errors.New("invalid state transition")
	ErrDuplicatePendingRequest = errors.New("a withdrawal request is already pending")
	ErrInsufficientBalance     = errors.New("insufficient withdrawable balance")
	ErrAlreadyApproved         = errors.New("withdrawal already approved")
	ErrInvalidPrice            = errors.New("price could not be parsed")
	ErrInvalidInput            = errors.New("invalid input")
	ErrConcurrencyConflict     = repository.ErrConcurrencyConflict
)

// notFound maps gorm's missing-row error to ErrNotFound, keeping the entity name.
func notFound(entity string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %w", entity, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", entity, err)
}
