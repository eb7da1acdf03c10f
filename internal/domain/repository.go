package domain

import "context"

// LedgerStore persists the full ledger between daemon runs.
// The store is the sole source of truth across restarts.
type LedgerStore interface {
	// Load reconstructs the full ledger. A missing store is not an
	// error and yields an empty map; an existing but unreadable store
	// returns an error wrapping ErrCorruptStore.
	Load() (map[LedgerKey]int64, error)

	// Save writes the full ledger atomically: a concurrent reader of
	// the store path never observes a partial write.
	Save(entries map[LedgerKey]int64) error

	// Path returns the backing store location (for status/logging).
	Path() string

	// Close releases store resources.
	Close() error
}

// WindowBackend enumerates the visible windows of the target user's
// graphical session. Implementations shell out to session tools
// (kdotool, xdotool, niri) via a SessionRunner.
type WindowBackend interface {
	// ListWindows returns the current window snapshot. A window whose
	// pid or title cannot be resolved is skipped, not fatal.
	ListWindows(ctx context.Context) ([]Window, error)

	// Name returns the backend identifier (for logging).
	Name() string
}

// SessionRunner executes a command inside the target user's session
// context (display/session environment), with a bounded timeout.
type SessionRunner interface {
	// Run executes args and returns trimmed stdout.
	Run(ctx context.Context, args ...string) (string, error)
}

// ProcessInspector resolves live process details for accounting.
// Implementation: gopsutil.
type ProcessInspector interface {
	// Describe returns name, command line and elapsed age for pid.
	Describe(pid int32) (ProcessInfo, error)
}

// ActionExecutor delivers policy side effects.
type ActionExecutor interface {
	// Notify shows a warning notification in the user's session.
	Notify(ctx context.Context, message string) error

	// Terminate delivers a termination request (SIGTERM) to pid.
	Terminate(ctx context.Context, pid int32) error
}

// RunStateStore persists daemon run state for the status command.
type RunStateStore interface {
	// Register writes the daemon's run state.
	Register(state RunState) error

	// Heartbeat refreshes the liveness timestamp.
	Heartbeat() error

	// Get returns the recorded state, or nil if none exists.
	Get() (*RunState, error)

	// Clear removes the run state file.
	Clear() error
}
