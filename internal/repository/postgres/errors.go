package postgres

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Pesokrava/reviewhub/internal/domain"
)

const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqForeignKeyViolation  = "23503"
	pqCheckViolation       = "23514"
)

// mapError translates driver errors into domain errors. Serialization
// failures, deadlocks and dropped connections become ErrTransient so callers
// can retry the whole unit of work.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqSerializationFailure, pqDeadlockDetected:
			return fmt.Errorf("%w: %v", domain.ErrTransient, err)
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrConflict, pqErr.Message)
		case pqCheckViolation:
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, pqErr.Message)
		}
	}

	if errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}

	return err
}
