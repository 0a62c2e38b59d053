package domain

import (
	"context"
	"time"
)

// MessageSource defines the boundary to whatever feeds messages into the
// monitor: a live stream plus a bounded fetch of recent history.
type MessageSource interface {
	Updates(ctx context.Context) (<-chan Message, error)
	History(ctx context.Context, limit int) ([]Message, error)
}

// NotificationSender delivers an alert for one matched product
type NotificationSender interface {
	SendMatch(ctx context.Context, match MatchResult, msg Message) error
}

// MatchRepository defines the interface for match record persistence
type MatchRepository interface {
	Save(ctx context.Context, rec *MatchRecord) error
	Recent(ctx context.Context, limit int) ([]MatchRecord, error)
}

// CacheRepository is the dedupe boundary: a TTL set of message keys the
// monitor has already processed.
type CacheRepository interface {
	Set(ctx context.Context, key string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}
