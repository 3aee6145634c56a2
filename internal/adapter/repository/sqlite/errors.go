package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danhlc/poslite/internal/adapter/repository/retry"
	"github.com/danhlc/poslite/internal/domain"
)

// NewRetrier creates a retrier for SQLITE_BUSY and SQLITE_LOCKED.
func NewRetrier(logger zerolog.Logger) *retry.Retrier {
	return retry.New(isRetryableError, logger)
}

func primaryCode(err error) int {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code() & 0xff
	}
	return 0
}

func isRetryableError(err error) bool {
	switch primaryCode(err) {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// mapError translates constraint errors into domain errors.
func mapError(err error) error {
	if primaryCode(err) != sqlite3.SQLITE_CONSTRAINT {
		return err
	}

	// The driver message names the violated constraint. It is kept for logs;
	// clients only ever see the sentinel text.
	var se *msqlite.Error
	errors.As(err, &se)
	if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		switch msg := se.Error(); {
		case strings.Contains(msg, ".code"):
			return fmt.Errorf("%w (%s)", domain.ErrDuplicateCode, msg)
		case strings.Contains(msg, "_name_lower_idx"):
			return fmt.Errorf("%w (%s)", domain.ErrDuplicateName, msg)
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrConstraintViolation, se.Error())
}
