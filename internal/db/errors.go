// Package db provides GORM-based database operations for inkwell.
package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Sentinel errors returned by the stores. Callers branch on these with
// errors.Is instead of inspecting driver-specific failures.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a uniqueness constraint was violated.
	ErrDuplicate = errors.New("duplicate record")

	// ErrInvalidInput indicates the caller supplied an unusable value.
	ErrInvalidInput = errors.New("invalid input")
)

// translateError maps GORM and driver errors onto the package sentinels.
// Unknown errors pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}

	// Each backend words its uniqueness violation differently.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"), // sqlite
		strings.Contains(msg, "duplicate key value"), // postgres
		strings.Contains(msg, "Error 1062"):          // mysql
		return ErrDuplicate
	}
	return err
}
