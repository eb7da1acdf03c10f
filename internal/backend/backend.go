// Package backend implements window enumeration for the supported
// session tools. All backends shell out via a SessionRunner so the
// queries run in the target user's session environment.
package backend

import (
	"fmt"

	"go.uber.org/zap"

	"playtimed/internal/domain"
)

// Kind selects a window backend implementation.
type Kind string

const (
	KindKdotool Kind = "kdotool"
	KindXdotool Kind = "xdotool"
	KindNiri    Kind = "niri"
)

// New creates the window backend for kind.
func New(kind Kind, runner domain.SessionRunner, logger *zap.Logger) (domain.WindowBackend, error) {
	switch kind {
	case KindKdotool:
		return &toolLister{name: string(KindKdotool), tool: "kdotool", runner: runner, logger: logger}, nil
	case KindXdotool:
		return &toolLister{name: string(KindXdotool), tool: "xdotool", runner: runner, logger: logger}, nil
	case KindNiri:
		return &niriLister{runner: runner}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", kind)
	}
}
