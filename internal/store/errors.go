package store

import (
	"errors"
	"strings"
)

var (
	// ErrDuplicateStart is returned when a frame write would repeat another frame's start.
	ErrDuplicateStart = errors.New("position frame start already taken")
	// ErrDuplicateName is returned when a performer or part name is already in use.
	ErrDuplicateName = errors.New("name already in use")
)

const (
	sqliteBusyCode             = 5
	sqliteConstraintUnique     = 2067
	sqliteConstraintPrimaryKey = 1555
)

type sqliteCoder interface{ Code() int }

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder sqliteCoder
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var coder sqliteCoder
	if errors.As(err, &coder) {
		switch coder.Code() {
		case sqliteConstraintUnique, sqliteConstraintPrimaryKey:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
