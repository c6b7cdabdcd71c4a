package db

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	//ErrNotOpen the store has been closed, or is between a backup's disconnect/reconnect
	ErrNotOpen = errors.New("database connection is not open")

	//ErrNotFound the named streamer, channel or config entry does not exist
	ErrNotFound = errors.New("record not found")

	//ErrConstraintViolation an insert or update broke a uniqueness or validity rule
	ErrConstraintViolation = errors.New("constraint violation")

	//ErrMigrationPlanMissing no migration step is registered for a required version
	ErrMigrationPlanMissing = errors.New("missing database migration plan")

	//ErrSchemaTooNew the file was written by a newer build than this one
	ErrSchemaTooNew = errors.New("database schema version is higher than the binaries target")

	//ErrInvalidValue a config value without a kind was supplied
	ErrInvalidValue = errors.New("config value has no kind")
)

//InitError is returned by Open when building a fresh database failed.
//By the time it is returned the partially written file has been removed.
type InitError struct {
	Filename string
	Err      error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("failed to initialize database %s: %v", e.Filename, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

//MigrationError reports the version whose step was missing or failed.
//Every version below Version stays applied.
type MigrationError struct {
	Version int
	Err     error
}

func (e *MigrationError) Error() string {
	if errors.Is(e.Err, ErrMigrationPlanMissing) {
		return fmt.Sprintf("missing database migration plan for version %d", e.Version)
	}
	return fmt.Sprintf("migration to version %d failed: %v", e.Version, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

//ConstraintError wraps a driver or validation error so that it matches
//ErrConstraintViolation with errors.Is
type ConstraintError struct {
	Err error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %v", ErrConstraintViolation.Error(), e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

//Is lets errors.Is(err, ErrConstraintViolation) succeed
func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraintViolation
}

func constraintf(format string, args ...interface{}) error {
	return &ConstraintError{Err: fmt.Errorf(format, args...)}
}

//translateError maps SQLite constraint failures onto ConstraintError
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return &ConstraintError{Err: err}
	}
	return err
}
