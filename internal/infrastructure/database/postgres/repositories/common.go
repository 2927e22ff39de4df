// Package repositories provides the PostgreSQL-backed implementations of the
// domain repository interfaces.  All queries are parameterised and every
// public method takes a context.Context for cancellation propagation.
package repositories

import (
	"time"

	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

// sqlDate maps a day-granularity Date to a nullable SQL DATE.  The zero Date
// round-trips as NULL.
func sqlDate(d ltypes.Date) *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time()
	return &t
}

// dateFromSQL is the inverse of sqlDate.
func dateFromSQL(t *time.Time) ltypes.Date {
	if t == nil {
		return ltypes.Date{}
	}
	return ltypes.DateOf(*t)
}
