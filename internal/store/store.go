// Package store persists processed videos, their ranked clips, and budget
// epochs in a local sqlite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fifteenfame/viralcut/internal/budget"
	"github.com/fifteenfame/viralcut/internal/types"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS videos (
	id          TEXT PRIMARY KEY,
	source_url  TEXT NOT NULL,
	title       TEXT,
	duration    REAL,
	status      TEXT NOT NULL DEFAULT 'processing',
	created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS clips (
	id             TEXT PRIMARY KEY,
	video_id       TEXT NOT NULL,
	segment_index  INTEGER NOT NULL,
	rank           INTEGER NOT NULL,
	start_time     REAL NOT NULL,
	end_time       REAL NOT NULL,
	transcript     TEXT,
	rule_score     REAL NOT NULL,
	combined_score REAL NOT NULL,
	viral_score          REAL,
	emotional_intensity  REAL,
	controversy_level    REAL,
	relatability         REAL,
	educational_value    REAL,
	entertainment_factor REAL,
	reasoning      TEXT,
	title          TEXT,
	caption        TEXT,
	tokens         INTEGER NOT NULL DEFAULT 0,
	cost           REAL NOT NULL DEFAULT 0,
	ai_applied     INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (video_id) REFERENCES videos (id)
);

CREATE TABLE IF NOT EXISTS budget_epochs (
	day       TEXT PRIMARY KEY,
	cap       REAL NOT NULL,
	spent     REAL NOT NULL,
	requests  INTEGER NOT NULL,
	tokens    INTEGER NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

type Store struct {
	conn   *sql.DB
	logger *slog.Logger
}

func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{conn: conn, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) SaveVideo(ctx context.Context, v types.Video, status string) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO videos (id, source_url, title, duration, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title=excluded.title, duration=excluded.duration, status=excluded.status`,
		v.ID, v.SourceURL, v.Title, v.Duration, status,
	)
	if err != nil {
		return fmt.Errorf("save video %s: %w", v.ID, err)
	}
	return nil
}

// SaveClips replaces a video's clips with the given ranked list; rank is the
// position in the list.
func (s *Store) SaveClips(ctx context.Context, videoID string, clips []types.Clip) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clips tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM clips WHERE video_id = ?`, videoID); err != nil {
		return fmt.Errorf("clear clips for %s: %w", videoID, err)
	}

	for rank, c := range clips {
		reasoning, err := json.Marshal(c.Score.Reasoning)
		if err != nil {
			return fmt.Errorf("marshal reasoning: %w", err)
		}
		var viral, emotional, controversy, relatability, educational, entertainment sql.NullFloat64
		if ai := c.Score.AIScores; ai != nil {
			viral = nf(ai.ViralPotential)
			emotional = nf(ai.EmotionalIntensity)
			controversy = nf(ai.Controversy)
			relatability = nf(ai.Relatability)
			educational = nf(ai.EducationalValue)
			entertainment = nf(ai.Entertainment)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO clips (
				id, video_id, segment_index, rank, start_time, end_time, transcript,
				rule_score, combined_score,
				viral_score, emotional_intensity, controversy_level,
				relatability, educational_value, entertainment_factor,
				reasoning, title, caption, tokens, cost, ai_applied
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, videoID, c.SegmentIndex, rank, c.Start, c.End, c.Transcript,
			c.Score.RuleScore, c.Score.CombinedScore,
			viral, emotional, controversy, relatability, educational, entertainment,
			string(reasoning), c.Score.Title, c.Score.Caption, c.Score.Tokens, c.Score.Cost, c.AIApplied,
		)
		if err != nil {
			return fmt.Errorf("insert clip %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// ClipsByVideo returns a video's clips in ranked order.
func (s *Store) ClipsByVideo(ctx context.Context, videoID string) ([]types.Clip, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, video_id, segment_index, start_time, end_time, transcript,
			rule_score, combined_score,
			viral_score, emotional_intensity, controversy_level,
			relatability, educational_value, entertainment_factor,
			reasoning, title, caption, tokens, cost, ai_applied
		FROM clips WHERE video_id = ? ORDER BY rank`, videoID)
	if err != nil {
		return nil, fmt.Errorf("query clips for %s: %w", videoID, err)
	}
	defer rows.Close()

	var out []types.Clip
	for rows.Next() {
		var c types.Clip
		var transcript, reasoning, title, caption sql.NullString
		var viral, emotional, controversy, relatability, educational, entertainment sql.NullFloat64
		err := rows.Scan(
			&c.ID, &c.VideoID, &c.SegmentIndex, &c.Start, &c.End, &transcript,
			&c.Score.RuleScore, &c.Score.CombinedScore,
			&viral, &emotional, &controversy, &relatability, &educational, &entertainment,
			&reasoning, &title, &caption, &c.Score.Tokens, &c.Score.Cost, &c.AIApplied,
		)
		if err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		c.Transcript = transcript.String
		c.Score.Title = title.String
		c.Score.Caption = caption.String
		if reasoning.Valid && reasoning.String != "" {
			if err := json.Unmarshal([]byte(reasoning.String), &c.Score.Reasoning); err != nil && s.logger != nil {
				s.logger.Warn("undecodable clip reasoning", "clip_id", c.ID, "error", err)
			}
		}
		if viral.Valid {
			c.Score.AIScores = &types.AIScores{
				ViralPotential:     viral.Float64,
				EmotionalIntensity: emotional.Float64,
				Controversy:        controversy.Float64,
				Relatability:       relatability.Float64,
				EducationalValue:   educational.Float64,
				Entertainment:      entertainment.Float64,
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// EpochKey is the budget epoch identifier for a point in time: the local
// calendar date.
func EpochKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// LoadBudgetEpoch returns the persisted snapshot for an epoch, reporting
// whether one exists.
func (s *Store) LoadBudgetEpoch(ctx context.Context, day string) (budget.Snapshot, bool, error) {
	var snap budget.Snapshot
	err := s.conn.QueryRowContext(ctx,
		`SELECT cap, spent, requests, tokens FROM budget_epochs WHERE day = ?`, day,
	).Scan(&snap.Cap, &snap.Spent, &snap.RequestCount, &snap.Tokens)
	if errors.Is(err, sql.ErrNoRows) {
		return budget.Snapshot{}, false, nil
	}
	if err != nil {
		return budget.Snapshot{}, false, fmt.Errorf("load budget epoch %s: %w", day, err)
	}
	return snap, true, nil
}

func (s *Store) SaveBudgetEpoch(ctx context.Context, day string, snap budget.Snapshot) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO budget_epochs (day, cap, spent, requests, tokens, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(day) DO UPDATE SET
			cap=excluded.cap, spent=excluded.spent,
			requests=excluded.requests, tokens=excluded.tokens,
			updated_at=CURRENT_TIMESTAMP`,
		day, snap.Cap, snap.Spent, snap.RequestCount, snap.Tokens,
	)
	if err != nil {
		return fmt.Errorf("save budget epoch %s: %w", day, err)
	}
	return nil
}

// ResetBudgetEpoch drops the persisted state for an epoch; the next run
// starts it from zero.
func (s *Store) ResetBudgetEpoch(ctx context.Context, day string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM budget_epochs WHERE day = ?`, day); err != nil {
		return fmt.Errorf("reset budget epoch %s: %w", day, err)
	}
	return nil
}

func nf(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}
