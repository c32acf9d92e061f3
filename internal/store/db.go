// Package store persists finished-match statistics in Postgres.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/royale-backend/internal/match"
	"github.com/DoyleJ11/royale-backend/internal/stats"
)

var ErrNoMatches = errors.New("player has no finished matches")

// Open connects through a pgx pool and migrates the schema. close releases
// both gorm's handle and the pool.
func Open(ctx context.Context, dsn string) (db *gorm.DB, closeFn func(), err error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to reach database: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err = gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		pool.Close()
		return nil, nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&MatchRecord{}, &TeamRecord{}, &PlayerRecord{}); err != nil {
		sqlDB.Close()
		pool.Close()
		return nil, nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return db, func() {
		sqlDB.Close()
		pool.Close()
	}, nil
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository { return &Repository{db: db} }

// SaveSummary writes a match with its teams and players in one transaction.
func (r *Repository) SaveSummary(ctx context.Context, s match.Summary) error {
	rec := FromSummary(s)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("save match %s: %w", s.MatchID, err)
		}
		return nil
	})
}

// RecentMatches returns the latest finished matches, newest first.
func (r *Repository) RecentMatches(ctx context.Context, limit int) ([]MatchRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []MatchRecord
	err := r.db.WithContext(ctx).
		Preload("Teams").
		Preload("Players").
		Order("ended_at desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("recent matches: %w", err)
	}
	return out, nil
}

type legendRow struct {
	LegendID      string
	Matches       int64
	Wins          int64
	Kills         int64
	Deaths        int64
	Revives       int64
	DamageDealt   float64
	SecondsPlayed float64
	MaxKills      int64
}

// PlayerStats sums every finished match playerID took part in, per legend.
// A win is a match whose winning team was the player's team.
func (r *Repository) PlayerStats(ctx context.Context, playerID string) (stats.PlayerStats, error) {
	var rows []legendRow
	err := r.db.WithContext(ctx).
		Model(&PlayerRecord{}).
		Select(`player_records.legend_id AS legend_id,
			COUNT(*) AS matches,
			COALESCE(SUM(CASE WHEN match_records.winner_team_id <> '' AND match_records.winner_team_id = player_records.team_id THEN 1 ELSE 0 END), 0) AS wins,
			COALESCE(SUM(player_records.kills), 0) AS kills,
			COALESCE(SUM(player_records.deaths), 0) AS deaths,
			COALESCE(SUM(player_records.revives), 0) AS revives,
			COALESCE(SUM(player_records.damage_dealt), 0) AS damage_dealt,
			COALESCE(SUM(player_records.survival_seconds), 0) AS seconds_played,
			COALESCE(MAX(player_records.kills), 0) AS max_kills`).
		Joins("JOIN match_records ON match_records.id = player_records.match_record_id AND match_records.deleted_at IS NULL").
		Where("player_records.player_id = ?", playerID).
		Group("player_records.legend_id").
		Scan(&rows).Error
	if err != nil {
		return stats.PlayerStats{}, fmt.Errorf("player stats %s: %w", playerID, err)
	}
	if len(rows) == 0 {
		return stats.PlayerStats{}, ErrNoMatches
	}

	lines := make([]stats.Line, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, stats.Line{
			LegendStats: stats.LegendStats{
				LegendID:      row.LegendID,
				Matches:       row.Matches,
				Wins:          row.Wins,
				Kills:         row.Kills,
				Deaths:        row.Deaths,
				DamageDealt:   row.DamageDealt,
				SecondsPlayed: row.SecondsPlayed,
			},
			Revives:  row.Revives,
			MaxKills: row.MaxKills,
		})
	}
	return stats.Fold(playerID, lines), nil
}
