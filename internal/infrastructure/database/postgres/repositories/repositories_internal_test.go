package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

func TestSQLDate_ZeroMapsToNull(t *testing.T) {
	assert.Nil(t, sqlDate(ltypes.Date{}))
}

func TestSQLDate_RoundTrip(t *testing.T) {
	d := ltypes.NewDate(2026, time.March, 15)

	got := sqlDate(d)
	require.NotNil(t, got)
	assert.True(t, d.Equal(dateFromSQL(got)))
}

func TestDateFromSQL_NullMapsToZero(t *testing.T) {
	assert.True(t, dateFromSQL(nil).IsZero())
}

func TestDateFromSQL_TruncatesTimeOfDay(t *testing.T) {
	ts := time.Date(2026, time.March, 15, 13, 45, 12, 0, time.UTC)

	got := dateFromSQL(&ts)
	assert.Equal(t, "2026-03-15", got.String())
}
