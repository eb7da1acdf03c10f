// Package daemon implements the watchdog polling loop.
package daemon

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"playtimed/internal/domain"
	"playtimed/internal/ledger"
	"playtimed/internal/matcher"
	"playtimed/internal/policy"
)

// Config holds watcher loop configuration.
type Config struct {
	Interval  time.Duration // pause between scans
	User      string        // session owner, for run state
	AccrueAll bool          // account every matched window per tick
}

// Watcher drives the scan / decide / act / persist cycle. Single
// threaded: exactly one cycle is in flight at a time, so the ledger
// needs no locking.
type Watcher struct {
	config    Config
	backend   domain.WindowBackend
	inspector domain.ProcessInspector
	matcher   *matcher.Matcher
	ledger    *ledger.Ledger
	engine    policy.Engine
	executor  domain.ActionExecutor
	runState  domain.RunStateStore
	logger    *zap.Logger

	// warnedDay guards at-most-one warning per threshold crossing. It
	// holds the day the warning went out, so it rearms at midnight and
	// on restart.
	warnedDay domain.Day
}

// NewWatcher creates the watchdog loop.
func NewWatcher(
	config Config,
	backend domain.WindowBackend,
	inspector domain.ProcessInspector,
	m *matcher.Matcher,
	l *ledger.Ledger,
	engine policy.Engine,
	executor domain.ActionExecutor,
	runState domain.RunStateStore,
	logger *zap.Logger,
) *Watcher {
	return &Watcher{
		config:    config,
		backend:   backend,
		inspector: inspector,
		matcher:   m,
		ledger:    l,
		engine:    engine,
		executor:  executor,
		runState:  runState,
		logger:    logger,
	}
}

// Run blocks until ctx is canceled. The ledger is persisted on every
// exit path, including signal-triggered shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.runState.Register(domain.RunState{
		PID:       os.Getpid(),
		User:      w.config.User,
		StartedAt: time.Now().Unix(),
	}); err != nil {
		w.logger.Warn("failed to register run state", zap.Error(err))
	}

	defer func() {
		if err := w.ledger.Persist(); err != nil {
			w.logger.Error("final ledger persist failed", zap.Error(err))
		}
		if err := w.runState.Clear(); err != nil {
			w.logger.Warn("failed to clear run state", zap.Error(err))
		}
	}()

	w.logger.Info("watchdog started",
		zap.String("backend", w.backend.Name()),
		zap.String("user", w.config.User),
		zap.Duration("interval", w.config.Interval),
		zap.Int64("limit_seconds", w.engine.LimitSeconds))

	// First tick immediately; the ticker covers the rest.
	w.tick(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watchdog stopping")
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick runs one scan / decide / act / persist cycle.
func (w *Watcher) tick(ctx context.Context) {
	now := time.Now()
	today := domain.DayOf(now)

	observations := w.scan(ctx, today)
	total := w.ledger.DailyTotal(today)
	decision := w.engine.Decide(total, now, w.warnedDay == today)

	w.act(ctx, decision, observations, total, today)

	// A failed persist loses at most this interval's accounting and is
	// retried next tick; the loop never dies because of it.
	if err := w.ledger.Persist(); err != nil {
		w.logger.Error("ledger persist failed, retrying next tick", zap.Error(err))
	}
	if err := w.runState.Heartbeat(); err != nil {
		w.logger.Debug("heartbeat failed", zap.Error(err))
	}
}

// scan enumerates windows, filters them through the matcher and
// accounts matched processes. A backend failure is non-fatal: the tick
// continues with no observations so existing ledger state still drives
// the decision (a missing snapshot must not reset the budget).
func (w *Watcher) scan(ctx context.Context, today domain.Day) []domain.Observation {
	windows, err := w.backend.ListWindows(ctx)
	if err != nil {
		w.logger.Warn("window backend unavailable, skipping scan",
			zap.String("backend", w.backend.Name()), zap.Error(err))
		return nil
	}

	var observations []domain.Observation
	for _, win := range windows {
		info, err := w.inspector.Describe(win.PID)
		if err != nil {
			w.logger.Debug("skipping window, process not resolvable",
				zap.Int32("pid", win.PID), zap.Error(err))
			continue
		}
		if !w.matcher.Matches(info.Cmdline, win.Title) {
			continue
		}

		obs := domain.Observation{Window: win, Process: info}
		entry := w.ledger.Update(obs.Key(today), info.AgeSeconds)
		w.logger.Info("accounted",
			zap.String("key", obs.Key(today).String()),
			zap.String("title", win.Title),
			zap.Int64("entry_seconds", entry),
			zap.Int64("total_seconds", w.ledger.DailyTotal(today)),
			zap.Int64("limit_seconds", w.engine.LimitSeconds))

		observations = append(observations, obs)
		if !w.config.AccrueAll {
			// First match wins: one logical session, one account.
			break
		}
	}
	return observations
}

// act delivers the decision's side effects.
func (w *Watcher) act(ctx context.Context, decision domain.Decision, observations []domain.Observation, total int64, today domain.Day) {
	switch decision {
	case domain.NoAction:

	case domain.Warn:
		remaining := time.Duration(w.engine.Remaining(total)) * time.Second
		msg := fmt.Sprintf("Stopping in %s", remaining)
		if err := w.executor.Notify(ctx, msg); err != nil {
			// Leave the flag unset so the warning retries next tick.
			w.logger.Warn("failed to send warning, will retry", zap.Error(err))
			return
		}
		w.warnedDay = today
		w.logger.Info("warning sent",
			zap.Int64("total_seconds", total),
			zap.Duration("remaining", remaining))

	case domain.Terminate:
		if len(observations) == 0 {
			w.logger.Debug("terminate decided but no matched process this tick")
			return
		}
		for _, obs := range observations {
			if err := w.executor.Terminate(ctx, obs.Process.PID); err != nil {
				w.logger.Warn("failed to terminate process",
					zap.Int32("pid", obs.Process.PID), zap.Error(err))
				continue
			}
			w.logger.Info("terminated process",
				zap.Int32("pid", obs.Process.PID),
				zap.String("command", obs.Process.Name),
				zap.String("title", obs.Window.Title),
				zap.Int64("total_seconds", total))
		}
	}
}
