package storage

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// isUniqueConstraintError checks the driver error message, since the drivers
// do not share a typed error for constraint violations.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	// SQLite
	return containsAny(msg, "UNIQUE constraint failed") ||
		// MySQL
		containsAny(msg, "Duplicate entry", "Error 1062") ||
		// Postgres
		containsAny(msg, "duplicate key value", "violates unique constraint")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// isNotFound reports whether err is gorm's record not found error
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
