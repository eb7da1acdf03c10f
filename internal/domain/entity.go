// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrCorruptStore is returned when the backing ledger store exists but
// cannot be parsed or decrypted. Startup must abort rather than discard
// history: a discarded ledger would reset the daily budget.
var ErrCorruptStore = errors.New("ledger store corrupt")

// Day is a local calendar date in "2006-01-02" form. Accounting is
// segmented by Day: a session crossing midnight spans two ledger keys.
type Day string

const dayLayout = "2006-01-02"

// DayOf returns the local calendar day of t.
func DayOf(t time.Time) Day {
	return Day(t.Format(dayLayout))
}

// Today returns the current local calendar day.
func Today() Day {
	return DayOf(time.Now())
}

// LedgerKey identifies one tracked accounting record.
// The PID participates in the key so distinct invocations on the same
// day are accounted separately.
type LedgerKey struct {
	Command string
	PID     int32
	Day     Day
}

// String renders the key in its stable persisted form: "command:pid:day".
func (k LedgerKey) String() string {
	return fmt.Sprintf("%s:%d:%s", k.Command, k.PID, k.Day)
}

// ParseLedgerKey parses the persisted "command:pid:day" form.
// The command may itself contain colons, so the pid and day fields are
// taken from the right.
func ParseLedgerKey(s string) (LedgerKey, error) {
	di := strings.LastIndexByte(s, ':')
	if di <= 0 {
		return LedgerKey{}, fmt.Errorf("malformed ledger key %q", s)
	}
	pi := strings.LastIndexByte(s[:di], ':')
	if pi <= 0 {
		return LedgerKey{}, fmt.Errorf("malformed ledger key %q", s)
	}

	pid, err := strconv.ParseInt(s[pi+1:di], 10, 32)
	if err != nil {
		return LedgerKey{}, fmt.Errorf("malformed pid in ledger key %q: %w", s, err)
	}
	day := s[di+1:]
	if _, err := time.ParseInLocation(dayLayout, day, time.Local); err != nil {
		return LedgerKey{}, fmt.Errorf("malformed day in ledger key %q: %w", s, err)
	}

	return LedgerKey{Command: s[:pi], PID: int32(pid), Day: Day(day)}, nil
}

// Decision is the policy engine's verdict for one evaluation.
type Decision int

const (
	NoAction Decision = iota
	Warn
	Terminate
)

// String returns the decision name for logging.
func (d Decision) String() string {
	switch d {
	case NoAction:
		return "no_action"
	case Warn:
		return "warn"
	case Terminate:
		return "terminate"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Window is one visible window reported by a backend.
type Window struct {
	ID    string
	PID   int32
	Title string
}

// ProcessInfo describes a live process as seen by the inspector.
type ProcessInfo struct {
	PID        int32
	Name       string // short command name, used in LedgerKey
	Cmdline    string // full command line, used for pattern matching
	AgeSeconds int64  // elapsed seconds since process start
}

// Observation is a matched window joined with its process info for one tick.
type Observation struct {
	Window  Window
	Process ProcessInfo
}

// Key returns the ledger key this observation accounts against on day.
func (o Observation) Key(day Day) LedgerKey {
	return LedgerKey{Command: o.Process.Name, PID: o.Process.PID, Day: day}
}

// MinuteOfDay is a wall-clock time of day as minutes since midnight.
type MinuteOfDay int

// ParseMinuteOfDay parses "HH:MM".
func ParseMinuteOfDay(s string) (MinuteOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return MinuteOfDay(t.Hour()*60 + t.Minute()), nil
}

// MinuteOf returns the minute-of-day of t.
func MinuteOf(t time.Time) MinuteOfDay {
	return MinuteOfDay(t.Hour()*60 + t.Minute())
}

// String renders the time as "HH:MM".
func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// RunState records the running daemon for liveness checks and the
// status command. Persisted as JSON, replaced atomically.
type RunState struct {
	PID           int    `json:"pid"`
	User          string `json:"user"`
	StorePath     string `json:"store_path"`
	StartedAt     int64  `json:"started_at"`
	LastHeartbeat int64  `json:"last_heartbeat"`
}
