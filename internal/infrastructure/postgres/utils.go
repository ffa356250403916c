package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/taller-core/internal/domain"
)

const (
	codeUniqueViolation  = "23505"
	codeCheckViolation   = "23514"
	codeFKViolation      = "23503"
	codeLockNotAvailable = "55P03"
	codeDeadlock         = "40P01"
)

// mapError traduce los errores de PostgreSQL que el dominio distingue. El resto se envuelve con op.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeLockNotAvailable, codeDeadlock:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrLockTimeout, pgErr.Message)
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrDuplicate, pgErr.ConstraintName)
		case codeFKViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrNotFound, pgErr.ConstraintName)
		case codeCheckViolation:
			switch pgErr.ConstraintName {
			case "purchase_order_lines_received_check":
				return fmt.Errorf("%s: %w", op, domain.ErrExceedsOrdered)
			case "stock_records_quantity_check":
				return fmt.Errorf("%s: %w", op, domain.ErrInsufficientStock)
			}
			return fmt.Errorf("%s: %w: %s", op, domain.ErrInvalidInput, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
