package backend

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"playtimed/internal/domain"
)

// toolLister enumerates windows via kdotool/xdotool style commands:
// a search call listing window ids, then per-window pid and title
// lookups. The two tools share the same subcommand vocabulary.
type toolLister struct {
	name   string
	tool   string
	runner domain.SessionRunner
	logger *zap.Logger
}

// Name returns the backend identifier.
func (t *toolLister) Name() string { return t.name }

// ListWindows returns the current window snapshot. Windows whose pid
// or title cannot be resolved are skipped; they may have closed
// between the search and the per-window queries.
func (t *toolLister) ListWindows(ctx context.Context) ([]domain.Window, error) {
	out, err := t.runner.Run(ctx, t.tool, "search", "--name", ".")
	if err != nil {
		return nil, err
	}

	var windows []domain.Window
	for _, id := range strings.Fields(out) {
		pidStr, err := t.runner.Run(ctx, t.tool, "getwindowpid", id)
		if err != nil {
			t.logger.Debug("skipping window without pid",
				zap.String("window", id), zap.Error(err))
			continue
		}
		pid, err := strconv.ParseInt(strings.TrimSpace(pidStr), 10, 32)
		if err != nil {
			continue
		}

		title, err := t.runner.Run(ctx, t.tool, "getwindowname", id)
		if err != nil {
			t.logger.Debug("skipping window without title",
				zap.String("window", id), zap.Error(err))
			continue
		}

		windows = append(windows, domain.Window{
			ID:    id,
			PID:   int32(pid),
			Title: strings.TrimSpace(title),
		})
	}
	return windows, nil
}

// Ensure toolLister implements domain.WindowBackend.
var _ domain.WindowBackend = (*toolLister)(nil)
