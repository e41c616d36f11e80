// Package db provides error normalization for database operations.
package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/signalboard/sigdebate/internal/debate"
	"github.com/surrealdb/surrealdb.go"
)

// wrapQueryError inspects a SurrealDB error and wraps it with the matching
// debate sentinel so callers can use errors.Is without knowing the backend.
// Returns the original error when it doesn't match a known pattern.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		if strings.Contains(msg, "not appendable") {
			return fmt.Errorf("%w: %s", debate.ErrNotAppendable, msg)
		}
		if strings.Contains(msg, "already exists") || strings.Contains(msg, "already contains") {
			return fmt.Errorf("%w: %s", debate.ErrConflict, msg)
		}
		if strings.Contains(msg, "Transaction conflict") {
			return fmt.Errorf("%w: %s", debate.ErrConflict, msg)
		}
	}

	return err
}
