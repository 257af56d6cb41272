package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrEntryNotFound   = errors.New("ledger entry not found")
)

// DuplicateKeyError reports a unique-constraint violation on Create. It is
// a dedicated type so callers never match on storage-engine error codes.
type DuplicateKeyError struct {
	Entity string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate %s", e.Entity)
}

// IsDuplicateKey reports whether err is a DuplicateKeyError.
func IsDuplicateKey(err error) bool {
	var dup *DuplicateKeyError
	return errors.As(err, &dup)
}

const mysqlDuplicateEntry = 1062

// translateDuplicate maps the MySQL duplicate-entry error (and gorm's own
// duplicated-key sentinel) to a DuplicateKeyError for the given entity.
func translateDuplicate(entity string, err error) error {
	if err == nil {
		return nil
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return &DuplicateKeyError{Entity: entity}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &DuplicateKeyError{Entity: entity}
	}
	return err
}
