package repositories

import (
	"errors"
	"gorm.io/gorm"
	"strings"
)

// IsUniqueViolation reports whether err came from a unique constraint. Drivers
// that translate errors return gorm.ErrDuplicatedKey; the message checks cover
// drivers and wrapping paths that don't.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value")
}
