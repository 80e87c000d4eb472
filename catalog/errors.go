package catalog

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/dailyyoga/datakit/source"
	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// MySQL server error numbers.
const (
	errDBAccessDenied     = 1044
	errAccessDenied       = 1045
	errTableAccessDenied  = 1142
	errColumnAccessDenied = 1143
	errDupEntry           = 1062
	errBadField           = 1054
	errParse              = 1064
	errNoSuchTable        = 1146
	errTooManyConnections = 1040
	errLockWaitTimeout    = 1205
	errLockDeadlock       = 1213
)

// classify maps database errors into source kinds. Cancellation passes
// through unchanged.
func classify(op string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	wrapped := fmt.Errorf("catalog: %s: %w", op, err)

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return source.Wrap(source.KindNotFound, wrapped)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, gomysql.ErrInvalidConn):
		return source.Wrap(source.KindTransient, wrapped)
	}

	var me *gomysql.MySQLError
	if errors.As(err, &me) {
		e := source.Wrap(kindOf(me.Number), wrapped)
		e.Code = fmt.Sprintf("%d", me.Number)
		return e
	}
	return source.Convert(wrapped)
}

func kindOf(number uint16) source.Kind {
	switch number {
	case errDBAccessDenied, errAccessDenied, errTableAccessDenied, errColumnAccessDenied:
		return source.KindPermissionDenied
	case errDupEntry:
		return source.KindConflict
	case errBadField, errParse, errNoSuchTable:
		return source.KindInvalid
	case errTooManyConnections, errLockWaitTimeout, errLockDeadlock:
		return source.KindTransient
	default:
		return source.KindUnknown
	}
}
