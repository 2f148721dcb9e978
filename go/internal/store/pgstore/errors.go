package pgstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/padelhub/gamenight/go/internal/apperr"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeAdminShutdown        = "57P01"

	activeRSVPConstraint = "rsvps_active_player_idx"
)

// classify converts a driver error into a domain error for op. Errors the
// domain has no kind for are wrapped with fmt.Errorf.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var domain *apperr.Error
	if errors.As(err, &domain) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Wrap(apperr.KindNotFound, op, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return apperr.Wrap(apperr.KindStoreUnavailable, op, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch code := string(pqErr.Code); {
		case code == codeLockNotAvailable, code == codeSerializationFailure, code == codeDeadlockDetected:
			return apperr.Wrap(apperr.KindConcurrentModification, op, err).With("sqlstate", code)
		case code == codeUniqueViolation && pqErr.Constraint == activeRSVPConstraint:
			return apperr.Wrap(apperr.KindDuplicateRSVP, op, err)
		case code == codeUniqueViolation:
			return apperr.Wrap(apperr.KindInvalidArgument, op, err).With("constraint", pqErr.Constraint)
		case code == codeAdminShutdown, strings.HasPrefix(code, "08"):
			return apperr.Wrap(apperr.KindStoreUnavailable, op, err).With("sqlstate", code)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
