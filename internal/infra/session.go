// Package infra implements infrastructure concerns (session commands,
// process inspection, ledger stores, run state).
package infra

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds every external session call so a hung
// tool cannot stall the polling loop.
const DefaultCommandTimeout = 5 * time.Second

// UserSessionRunner executes commands inside the target user's session
// via runuser, with the session bus environment set for that user's
// uid. The daemon itself typically runs as root.
type UserSessionRunner struct {
	username string
	uid      string
	timeout  time.Duration
}

// NewUserSessionRunner resolves username and returns a runner for that
// user's session.
func NewUserSessionRunner(username string, timeout time.Duration) (*UserSessionRunner, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return nil, fmt.Errorf("unknown user %q: %w", username, err)
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &UserSessionRunner{username: username, uid: u.Uid, timeout: timeout}, nil
}

// Run executes args as the target user and returns trimmed stdout.
// A non-zero exit or timeout is an error carrying stderr for context.
func (r *UserSessionRunner) Run(ctx context.Context, args ...string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("no command given")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	runuserArgs := append([]string{"-u", r.username, "--"}, args...)
	cmd := exec.CommandContext(ctx, "runuser", runuserArgs...)
	cmd.Env = append(os.Environ(),
		"XDG_RUNTIME_DIR=/run/user/"+r.uid,
		"DBUS_SESSION_BUS_ADDRESS=unix:path=/run/user/"+r.uid+"/bus",
	)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("command %q timed out after %s", args[0], r.timeout)
		}
		return "", fmt.Errorf("command %q failed: %w: %s",
			args[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
