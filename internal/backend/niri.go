package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"playtimed/internal/domain"
)

// niriLister enumerates windows via `niri msg -j windows`, which
// returns one JSON array describing every window in a single call.
type niriLister struct {
	runner domain.SessionRunner
}

// Name returns the backend identifier.
func (n *niriLister) Name() string { return string(KindNiri) }

type niriWindow struct {
	ID    int64  `json:"id"`
	PID   int32  `json:"pid"`
	Title string `json:"title"`
}

// ListWindows returns the current window snapshot.
func (n *niriLister) ListWindows(ctx context.Context) ([]domain.Window, error) {
	out, err := n.runner.Run(ctx, "niri", "msg", "-j", "windows")
	if err != nil {
		return nil, err
	}

	var parsed []niriWindow
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse niri window list: %w", err)
	}

	windows := make([]domain.Window, 0, len(parsed))
	for _, w := range parsed {
		windows = append(windows, domain.Window{
			ID:    strconv.FormatInt(w.ID, 10),
			PID:   w.PID,
			Title: w.Title,
		})
	}
	return windows, nil
}

// Ensure niriLister implements domain.WindowBackend.
var _ domain.WindowBackend = (*niriLister)(nil)
