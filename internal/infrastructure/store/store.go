package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/8nevil8/telegram-channel-monitor/internal/domain"
)

// Store persists matches to SQLite. It implements domain.MatchRepository.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			product_name TEXT NOT NULL,
			matched_keyword TEXT NOT NULL DEFAULT '',
			price REAL,
			currency TEXT NOT NULL DEFAULT '',
			channel_name TEXT NOT NULL DEFAULT '',
			message_id INTEGER NOT NULL DEFAULT 0,
			message_text TEXT NOT NULL DEFAULT '',
			message_link TEXT NOT NULL DEFAULT '',
			message_date DATETIME
		);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_timestamp ON matches(timestamp);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_product ON matches(product_name);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts one match record and fills in its assigned id
func (s *Store) Save(ctx context.Context, rec *domain.MatchRecord) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO matches (timestamp, product_name, matched_keyword, price, currency,
			channel_name, message_id, message_text, message_link, message_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UTC(), rec.ProductName, rec.MatchedKeyword, rec.Price, rec.Currency,
		rec.ChannelName, rec.MessageID, rec.MessageText, rec.MessageLink, rec.MessageDate.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// Recent returns the newest matches, most recent first
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.MatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, product_name, matched_keyword, price, currency,
			channel_name, message_id, message_text, message_link, message_date
		 FROM matches ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var records []domain.MatchRecord
	for rows.Next() {
		var rec domain.MatchRecord
		var price sql.NullFloat64
		var msgDate sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.ProductName, &rec.MatchedKeyword,
			&price, &rec.Currency, &rec.ChannelName, &rec.MessageID,
			&rec.MessageText, &rec.MessageLink, &msgDate); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		if price.Valid {
			v := price.Float64
			rec.Price = &v
		}
		if msgDate.Valid {
			rec.MessageDate = msgDate.Time
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PruneOlderThan deletes matches recorded before the cutoff and reports how
// many rows were removed.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM matches WHERE timestamp < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune matches: %w", err)
	}
	return res.RowsAffected()
}

// RunRetention prunes matches older than maxAge, immediately and then once
// per interval, until the context is cancelled. A maxAge of zero or less
// disables retention and returns at once.
func (s *Store) RunRetention(ctx context.Context, maxAge, interval time.Duration) {
	if maxAge <= 0 {
		return
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	prune := func() {
		n, err := s.PruneOlderThan(ctx, time.Now().Add(-maxAge))
		if err != nil {
			log.Printf("[STORE] retention prune failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("[STORE] retention pruned %d matches older than %s", n, maxAge)
		}
	}

	prune()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
