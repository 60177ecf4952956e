package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/avashista/jobquest/backend/models"
	"github.com/avashista/jobquest/backend/repository"
)

const watchdogInterval = 5 * time.Minute

// SessionWatchdog sweeps for in_progress sessions that went quiet and marks
// them abandoned. Abandoned is terminal: no summary, no metrics update.
type SessionWatchdog struct {
	repo       *repository.GORMRepository
	idleAfter  time.Duration
	stopSignal chan struct{}
}

func NewSessionWatchdog(repo *repository.GORMRepository, idleAfter time.Duration) *SessionWatchdog {
	return &SessionWatchdog{
		repo:       repo,
		idleAfter:  idleAfter,
		stopSignal: make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called.
func (w *SessionWatchdog) Start() {
	slog.Info("Session watchdog started", "idle_after", w.idleAfter)
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(context.Background())
		case <-w.stopSignal:
			slog.Info("Session watchdog stopped")
			return
		}
	}
}

func (w *SessionWatchdog) Stop() {
	close(w.stopSignal)
}

func (w *SessionWatchdog) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.idleAfter)
	sessions, err := w.repo.GetStaleInProgressSessions(ctx, cutoff)
	if err != nil {
		slog.Error("Watchdog sweep failed", "error", err)
		return
	}

	for i := range sessions {
		session := &sessions[i]
		session.Status = models.SessionStatusAbandoned
		if err := w.repo.UpdateInterviewSession(ctx, session); err != nil {
			slog.Error("Failed to abandon stale session", "error", err, "session_id", session.ID)
			continue
		}
		slog.Info("Abandoned stale interview session", "session_id", session.ID, "user_id", session.UserID)
	}
}
