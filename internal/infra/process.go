package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"playtimed/internal/domain"
)

// ProcessInspectorImpl implements domain.ProcessInspector using gopsutil.
type ProcessInspectorImpl struct{}

// NewProcessInspector creates a new process inspector.
func NewProcessInspector() domain.ProcessInspector {
	return &ProcessInspectorImpl{}
}

// Describe returns the name, full command line and elapsed age of pid.
func (pi *ProcessInspectorImpl) Describe(pid int32) (domain.ProcessInfo, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return domain.ProcessInfo{}, fmt.Errorf("process %d not found: %w", pid, err)
	}

	name, err := p.Name()
	if err != nil {
		return domain.ProcessInfo{}, fmt.Errorf("failed to read name of %d: %w", pid, err)
	}
	cmdline, err := p.Cmdline()
	if err != nil {
		return domain.ProcessInfo{}, fmt.Errorf("failed to read cmdline of %d: %w", pid, err)
	}
	createMs, err := p.CreateTime()
	if err != nil {
		return domain.ProcessInfo{}, fmt.Errorf("failed to read start time of %d: %w", pid, err)
	}

	age := time.Now().UnixMilli() - createMs
	if age < 0 {
		age = 0
	}

	return domain.ProcessInfo{
		PID:        pid,
		Name:       name,
		Cmdline:    cmdline,
		AgeSeconds: age / 1000,
	}, nil
}

// IsRunning checks whether pid exists and is running.
func IsRunning(pid int32) bool {
	p, err := process.NewProcess(pid)
	if err != nil {
		return false
	}
	running, err := p.IsRunning()
	return err == nil && running
}

// SessionActionExecutor implements domain.ActionExecutor. Notifications
// go through the user session; termination is a SIGTERM to the target.
type SessionActionExecutor struct {
	runner domain.SessionRunner
}

// NewSessionActionExecutor creates an executor delivering via runner.
func NewSessionActionExecutor(runner domain.SessionRunner) domain.ActionExecutor {
	return &SessionActionExecutor{runner: runner}
}

// Notify shows a desktop notification via notify-send.
func (e *SessionActionExecutor) Notify(ctx context.Context, message string) error {
	_, err := e.runner.Run(ctx, "notify-send", message)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

// Terminate delivers a termination request (SIGTERM, not SIGKILL) so
// the target can shut down cleanly.
func (e *SessionActionExecutor) Terminate(ctx context.Context, pid int32) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return fmt.Errorf("process %d not found: %w", pid, err)
	}
	if err := p.TerminateWithContext(ctx); err != nil {
		return fmt.Errorf("failed to terminate %d: %w", pid, err)
	}
	return nil
}

// Ensure implementations satisfy their ports.
var (
	_ domain.ProcessInspector = (*ProcessInspectorImpl)(nil)
	_ domain.ActionExecutor   = (*SessionActionExecutor)(nil)
)
