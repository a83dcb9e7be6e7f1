package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint failure from
// SQLite or Postgres. When column is provided, the failure must reference it.
func IsUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		if liteErr.ExtendedCode != sqlite3.ErrConstraintUnique && liteErr.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
			return false
		}
		return column == "" || strings.Contains(liteErr.Error(), "."+column)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return false
		}
		return column == "" ||
			strings.Contains(pgErr.ConstraintName, column) ||
			strings.Contains(pgErr.Detail, "("+column+")") ||
			strings.Contains(pgErr.Detail, `("`+column+`")`)
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return column == ""
	}

	msg := err.Error()
	if column != "" && !strings.Contains(msg, column) {
		return false
	}
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
