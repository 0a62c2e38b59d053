package usecase

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/8nevil8/telegram-channel-monitor/internal/domain"
)

const messagePreviewLength = 100

// MonitorConfig holds the monitoring-layer settings that sit outside the
// matching core: age filtering, dedupe, persistence and notification pacing.
type MonitorConfig struct {
	MaxAgeDays  int
	SaveMatches bool
	DedupeTTL   time.Duration
	// NotifyRate paces outbound notifications to stay under Telegram's
	// flood limits.
	NotifyRate rate.Limit
}

// RunStats counts per-run processing outcomes
type RunStats struct {
	Scanned    int `json:"scanned"`
	Matched    int `json:"matched"`
	SkippedOld int `json:"skippedOld"`
	NoText     int `json:"noText"`
	NoMatch    int `json:"noMatch"`
	Duplicates int `json:"duplicates"`
}

// MonitorService drives message processing: it consumes the message source,
// runs each message through the matcher and fans matches out to the notifier
// and the match store. No error on a single message is ever fatal.
type MonitorService struct {
	matcher  *MatcherService
	source   domain.MessageSource
	notifier domain.NotificationSender
	matches  domain.MatchRepository
	seen     domain.CacheRepository
	limiter  *rate.Limiter
	cfg      MonitorConfig
}

// NewMonitorService wires the monitor. Notifier, match repository and seen
// cache are optional; a nil dependency simply disables that concern.
func NewMonitorService(
	matcher *MatcherService,
	source domain.MessageSource,
	notifier domain.NotificationSender,
	matches domain.MatchRepository,
	seen domain.CacheRepository,
	cfg MonitorConfig,
) *MonitorService {
	if cfg.NotifyRate <= 0 {
		cfg.NotifyRate = rate.Limit(2) // matches the historical 500ms pause between alerts
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = 24 * time.Hour
	}
	return &MonitorService{
		matcher:  matcher,
		source:   source,
		notifier: notifier,
		matches:  matches,
		seen:     seen,
		limiter:  rate.NewLimiter(cfg.NotifyRate, 1),
		cfg:      cfg,
	}
}

// Run consumes the live update stream until the context is cancelled
func (m *MonitorService) Run(ctx context.Context) error {
	updates, err := m.source.Updates(ctx)
	if err != nil {
		return err
	}

	log.Printf("[MONITOR] started, listening for new messages")

	var stats RunStats
	for {
		select {
		case <-ctx.Done():
			m.logStats("live run", stats)
			return ctx.Err()
		case msg, ok := <-updates:
			if !ok {
				m.logStats("live run", stats)
				return nil
			}
			m.ProcessMessage(ctx, msg, &stats)
		}
	}
}

// ScanHistory fetches up to limit recent messages from the source and
// processes them in chronological order, oldest first.
func (m *MonitorService) ScanHistory(ctx context.Context, limit int) (RunStats, error) {
	log.Printf("[MONITOR] history scan: checking up to %d recent messages", limit)

	msgs, err := m.source.History(ctx, limit)
	if err != nil {
		return RunStats{}, err
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Date.Before(msgs[j].Date)
	})

	var stats RunStats
	for _, msg := range msgs {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		m.ProcessMessage(ctx, msg, &stats)
	}

	m.logStats("history scan", stats)
	return stats, nil
}

// ProcessMessage runs one message through age filtering, dedupe, matching,
// notification and persistence. Failures are logged and counted, never
// propagated: the monitor must keep running across arbitrarily malformed
// input.
func (m *MonitorService) ProcessMessage(ctx context.Context, msg domain.Message, stats *RunStats) {
	stats.Scanned++

	if m.tooOld(msg) {
		stats.SkippedOld++
		return
	}
	if msg.Text == "" {
		stats.NoText++
		return
	}
	if m.alreadySeen(ctx, msg) {
		stats.Duplicates++
		return
	}

	log.Printf("[MONITOR] msg #%d (%s): %s", msg.ID, msg.ChannelName, preview(msg.Text))

	results := m.matcher.MatchMessage(msg.Text)
	m.markSeen(ctx, msg)

	if len(results) == 0 {
		stats.NoMatch++
		return
	}

	log.Printf("[MONITOR] msg #%d: %d product match(es)", msg.ID, len(results))

	for _, res := range results {
		stats.Matched++
		m.deliver(ctx, res, msg)
		m.persist(ctx, res, msg)
	}
}

func (m *MonitorService) deliver(ctx context.Context, res domain.MatchResult, msg domain.Message) {
	if m.notifier == nil || !res.Notify {
		return
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return
	}
	if err := m.notifier.SendMatch(ctx, res, msg); err != nil {
		log.Printf("[MONITOR] notification for %s failed: %v", res.ProductName, err)
	}
}

func (m *MonitorService) persist(ctx context.Context, res domain.MatchResult, msg domain.Message) {
	if m.matches == nil || !m.cfg.SaveMatches {
		return
	}
	rec := &domain.MatchRecord{
		Timestamp:      time.Now().UTC(),
		ProductName:    res.ProductName,
		MatchedKeyword: res.MatchedKeyword,
		Price:          res.Price,
		Currency:       res.Currency,
		ChannelName:    msg.ChannelName,
		MessageID:      msg.ID,
		MessageText:    msg.Text,
		MessageLink:    msg.Link(),
		MessageDate:    msg.Date,
	}
	if err := m.matches.Save(ctx, rec); err != nil {
		log.Printf("[MONITOR] failed to save match for %s: %v", res.ProductName, err)
	}
}

// tooOld reports whether the message falls outside the configured age window.
// Messages without a date pass the check.
func (m *MonitorService) tooOld(msg domain.Message) bool {
	if m.cfg.MaxAgeDays <= 0 || msg.Date.IsZero() {
		return false
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -m.cfg.MaxAgeDays)
	return msg.Date.Before(cutoff)
}

func (m *MonitorService) alreadySeen(ctx context.Context, msg domain.Message) bool {
	if m.seen == nil {
		return false
	}
	exists, err := m.seen.Exists(ctx, msg.Key())
	return err == nil && exists
}

func (m *MonitorService) markSeen(ctx context.Context, msg domain.Message) {
	if m.seen == nil {
		return
	}
	_ = m.seen.Set(ctx, msg.Key(), m.cfg.DedupeTTL)
}

func (m *MonitorService) logStats(label string, stats RunStats) {
	log.Printf("[MONITOR] %s complete: scanned=%d matched=%d skipped_old=%d no_text=%d no_match=%d duplicates=%d",
		label, stats.Scanned, stats.Matched, stats.SkippedOld, stats.NoText, stats.NoMatch, stats.Duplicates)
}

func preview(text string) string {
	flat := strings.ReplaceAll(text, "\n", " ")
	runes := []rune(flat)
	if len(runes) <= messagePreviewLength {
		return flat
	}
	return string(runes[:messagePreviewLength]) + "..."
}
