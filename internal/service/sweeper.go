package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/rs/xid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultSweepInterval is how often expired sessions are cleared when no
// interval is configured.
const DefaultSweepInterval = time.Hour

// SessionCleaner is the slice of AdminService the sweeper needs.
type SessionCleaner interface {
	CleanupExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// SessionSweeper periodically clears expired tokens so the users table does
// not carry dead sessions forever. Expired tokens are already rejected on
// read; sweeping is housekeeping, not enforcement.
type SessionSweeper struct {
	cleaner SessionCleaner
	logger  *slog.Logger
	now     func() time.Time
}

func NewSessionSweeper(cleaner SessionCleaner, logger *slog.Logger) *SessionSweeper {
	return &SessionSweeper{cleaner: cleaner, logger: logger, now: time.Now}
}

// RunOnce performs a single sweep. Each sweep gets an id so its log lines
// can be correlated.
func (s *SessionSweeper) RunOnce(ctx context.Context) (int64, error) {
	runID := xid.New().String()
	start := s.now()

	ctx, span := otel.Tracer("codewizard/service").Start(ctx, "session.sweep")
	defer span.End()
	span.SetAttributes(attribute.String("sweep.run", runID))

	n, err := s.cleaner.CleanupExpiredSessions(ctx, start.UTC())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sweep failed")
		s.logger.Error("session sweep failed",
			slog.String("run", runID),
			slog.String("error", err.Error()),
		)
		return 0, err
	}

	span.SetAttributes(attribute.Int64("sweep.cleared", n))
	s.logger.Info("session sweep finished",
		slog.String("run", runID),
		slog.Int64("cleared", n),
		slog.Duration("took", s.now().Sub(start)),
	)
	return n, nil
}

// Run sweeps once immediately and then every interval until ctx ends. A
// failed sweep is logged and retried on the next tick. Run returns nil when
// ctx is cancelled.
func (s *SessionSweeper) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_, _ = s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}
