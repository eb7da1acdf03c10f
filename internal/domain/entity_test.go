package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerKey_StringRoundTrip(t *testing.T) {
	keys := []LedgerKey{
		{Command: "steam", PID: 4242, Day: "2024-01-01"},
		{Command: "dota2", PID: 1, Day: "2026-12-31"},
		{Command: "weird:name", PID: 99, Day: "2024-06-15"},
	}

	for _, k := range keys {
		got, err := ParseLedgerKey(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
}

func TestParseLedgerKey_Malformed(t *testing.T) {
	for _, s := range []string{
		"",
		"steam",
		"steam:4242",
		"steam:notapid:2024-01-01",
		"steam:4242:not-a-day",
		":1:2024-01-01",
	} {
		_, err := ParseLedgerKey(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestDayOf(t *testing.T) {
	ts := time.Date(2024, 3, 9, 23, 59, 0, 0, time.Local)
	assert.Equal(t, Day("2024-03-09"), DayOf(ts))
	// One minute later is the next accounting day.
	assert.Equal(t, Day("2024-03-10"), DayOf(ts.Add(time.Minute)))
}

func TestParseMinuteOfDay(t *testing.T) {
	m, err := ParseMinuteOfDay("12:00")
	require.NoError(t, err)
	assert.Equal(t, MinuteOfDay(720), m)
	assert.Equal(t, "12:00", m.String())

	m, err = ParseMinuteOfDay("00:00")
	require.NoError(t, err)
	assert.Equal(t, MinuteOfDay(0), m)

	_, err = ParseMinuteOfDay("25:00")
	assert.Error(t, err)
	_, err = ParseMinuteOfDay("noon")
	assert.Error(t, err)
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "no_action", NoAction.String())
	assert.Equal(t, "warn", Warn.String())
	assert.Equal(t, "terminate", Terminate.String())
}
