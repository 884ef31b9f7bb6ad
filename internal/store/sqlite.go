package store

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/lox/weatherstatus/internal/models"
)

// Store is the audit history of weather fetches and status pushes.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

func New(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, log: logger}
}

// Open opens (creating if needed) the SQLite database at path in WAL mode
// and applies migrations.
func Open(path string, logger *zap.Logger) (*Store, *sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := New(db, logger)
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return s, db, nil
}

func (s *Store) RecordWeatherFetch(f models.WeatherFetch) error {
	_, err := s.db.Exec(`
		INSERT INTO weather_fetches (source, started_at, duration_ms, success, condition, temp, sunrise, sunset, error_kind, error_msg)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.Source, f.StartedAt.UTC(), f.DurationMS, f.Success, f.Condition, f.Temp, f.Sunrise, f.Sunset, f.ErrorKind, f.ErrorMsg)
	if err != nil {
		return fmt.Errorf("insert weather fetch: %w", err)
	}
	return nil
}

func (s *Store) RecordStatusPush(p models.StatusPush) error {
	_, err := s.db.Exec(`
		INSERT INTO status_pushes (text, pushed_at, duration_ms, success, error_msg)
		VALUES (?, ?, ?, ?, ?)
	`, p.Text, p.PushedAt.UTC(), p.DurationMS, p.Success, p.ErrorMsg)
	if err != nil {
		return fmt.Errorf("insert status push: %w", err)
	}
	return nil
}

// RecentFetches returns up to limit fetches, newest first.
func (s *Store) RecentFetches(limit int) ([]models.WeatherFetch, error) {
	rows, err := s.db.Query(`
		SELECT id, source, started_at, duration_ms, success, condition, temp, sunrise, sunset, error_kind, error_msg, created_at
		FROM weather_fetches
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fetches []models.WeatherFetch
	for rows.Next() {
		var f models.WeatherFetch
		if err := rows.Scan(&f.ID, &f.Source, &f.StartedAt, &f.DurationMS, &f.Success, &f.Condition, &f.Temp, &f.Sunrise, &f.Sunset, &f.ErrorKind, &f.ErrorMsg, &f.CreatedAt); err != nil {
			return nil, err
		}
		fetches = append(fetches, f)
	}
	return fetches, rows.Err()
}

// RecentPushes returns up to limit pushes, newest first.
func (s *Store) RecentPushes(limit int) ([]models.StatusPush, error) {
	rows, err := s.db.Query(`
		SELECT id, text, pushed_at, duration_ms, success, error_msg, created_at
		FROM status_pushes
		ORDER BY pushed_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pushes []models.StatusPush
	for rows.Next() {
		var p models.StatusPush
		if err := rows.Scan(&p.ID, &p.Text, &p.PushedAt, &p.DurationMS, &p.Success, &p.ErrorMsg, &p.CreatedAt); err != nil {
			return nil, err
		}
		pushes = append(pushes, p)
	}
	return pushes, rows.Err()
}

// Prune deletes history older than retention and reports rows removed.
func (s *Store) Prune(now time.Time, retention time.Duration) (int64, error) {
	cutoff := now.Add(-retention).UTC()

	var total int64
	for _, q := range []string{
		`DELETE FROM weather_fetches WHERE started_at < ?`,
		`DELETE FROM status_pushes WHERE pushed_at < ?`,
	} {
		res, err := s.db.Exec(q, cutoff)
		if err != nil {
			return total, fmt.Errorf("prune: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
