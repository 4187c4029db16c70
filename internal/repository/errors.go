// Package repository defines error types that are reused across multiple
// repositories.  Lookups that find nothing return one of the ErrXNotFound
// values, all of which wrap ErrNotFound so callers can test for the family
// with errors.Is.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is the common cause of every not-found sentinel below.
var ErrNotFound = errors.New("not found")

var (
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrLotNotFound     = fmt.Errorf("parking lot %w", ErrNotFound)
	ErrSpotNotFound    = fmt.Errorf("parking spot %w", ErrNotFound)
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
)

// ErrEmailExists is returned by UserRepo.Create for a duplicate email.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict signals that a write was rejected by a uniqueness constraint,
// for example two spots of one lot sharing a label.
var ErrConflict = errors.New("conflict")

// isUniqueViolation recognises duplicate-key errors from MySQL (1062) and
// SQLite ("UNIQUE constraint failed").
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// likePattern builds a substring LIKE pattern escaped with '!', to be used
// together with `ESCAPE '!'`.
func likePattern(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(s) + "%"
}
