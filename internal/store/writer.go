package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/royale-backend/internal/match"
)

type Saver interface {
	SaveSummary(ctx context.Context, s match.Summary) error
}

// LogSaver stands in for the database when none is configured.
type LogSaver struct {
	Logger *zap.Logger
}

func (l LogSaver) SaveSummary(_ context.Context, s match.Summary) error {
	l.Logger.Info("match summary",
		zap.String("match_id", s.MatchID),
		zap.String("outcome", string(s.Outcome)),
		zap.String("winner_team_id", s.WinnerTeamID),
		zap.Int("players", len(s.Players)),
		zap.Duration("duration", s.EndedAt.Sub(s.StartedAt)),
	)
	return nil
}

// StatsWriter queues summaries from match goroutines and saves them on its
// own goroutine.
type StatsWriter struct {
	queue   chan match.Summary
	saver   Saver
	timeout time.Duration
	log     *zap.Logger
}

func NewStatsWriter(saver Saver, buffer int, logger *zap.Logger) *StatsWriter {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsWriter{
		queue:   make(chan match.Summary, buffer),
		saver:   saver,
		timeout: 5 * time.Second,
		log:     logger.With(zap.String("component", "stats")),
	}
}

// Record never blocks; a full queue drops the summary.
func (w *StatsWriter) Record(s match.Summary) {
	select {
	case w.queue <- s:
	default:
		w.log.Warn("stats queue full, summary dropped", zap.String("match_id", s.MatchID))
	}
}

// Run saves queued summaries until ctx is done, then drains what is left.
func (w *StatsWriter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case s := <-w.queue:
					w.save(context.Background(), s)
				default:
					return nil
				}
			}
		case s := <-w.queue:
			w.save(ctx, s)
		}
	}
}

func (w *StatsWriter) save(parent context.Context, s match.Summary) {
	ctx, cancel := context.WithTimeout(parent, w.timeout)
	defer cancel()
	if err := w.saver.SaveSummary(ctx, s); err != nil {
		w.log.Warn("failed to save match summary", zap.String("match_id", s.MatchID), zap.Error(err))
		return
	}
	w.log.Debug("match summary saved", zap.String("match_id", s.MatchID))
}

var _ match.StatisticsSink = (*StatsWriter)(nil)
