package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies a storage failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindDuplicateKey
	KindConstraint
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindDuplicateKey:
		return "duplicate_key"
	case KindConstraint:
		return "constraint"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against any *StoreError of the same kind.
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrConstraint   = errors.New("constraint violation")
	ErrUnavailable  = errors.New("store unavailable")
)

// PostgreSQL SQLSTATE codes the repositories classify.
const (
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgAdminShutdown       = "57P01"
	pgCannotConnectNow    = "57P03"
	pgTooManyConnections  = "53300"
)

// StoreError is the typed error every repository returns for storage failures.
type StoreError struct {
	Kind       Kind
	Op         string
	Constraint string
	Err        error
}

func (e *StoreError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Kind, e.Constraint, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is lets callers match on the kind sentinels.
func (e *StoreError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrDuplicateKey:
		return e.Kind == KindDuplicateKey
	case ErrConstraint:
		return e.Kind == KindConstraint
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	}
	return false
}

// KindOf returns the storage classification of err, or KindUnknown.
func KindOf(err error) Kind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// notFound builds a NotFound error for lookups that matched no rows.
func notFound(op string) error {
	return &StoreError{Kind: KindNotFound, Op: op, Err: pgx.ErrNoRows}
}

// translate classifies a pgx error by its SQLSTATE or connection state.
// It returns nil for a nil error and never inspects message text.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *StoreError
	if errors.As(err, &se) {
		return err
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return &StoreError{Kind: KindNotFound, Op: op, Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := KindUnknown
		switch pgErr.Code {
		case pgUniqueViolation:
			kind = KindDuplicateKey
		case pgCheckViolation, pgNotNullViolation, pgForeignKeyViolation:
			kind = KindConstraint
		case pgAdminShutdown, pgCannotConnectNow, pgTooManyConnections:
			kind = KindUnavailable
		default:
			// class 08 is connection exception
			if len(pgErr.Code) == 5 && pgErr.Code[:2] == "08" {
				kind = KindUnavailable
			}
		}
		return &StoreError{Kind: kind, Op: op, Constraint: pgErr.ConstraintName, Err: err}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &StoreError{Kind: KindUnavailable, Op: op, Err: err}
	}

	return &StoreError{Kind: KindUnknown, Op: op, Err: err}
}
