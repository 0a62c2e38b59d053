package telegram

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/8nevil8/telegram-channel-monitor/internal/domain"
)

// Source adapts the Bot API update stream to the monitor's MessageSource
// boundary, filtering updates down to the configured channels.
type Source struct {
	client   *Client
	channels map[string]struct{} // normalized identifiers, usernames lowercased
}

// NewSource builds a source watching the given channels. Identifiers are
// accepted in any format NormalizeChannelID understands.
func NewSource(client *Client, channels []string) *Source {
	normalized := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		id := NormalizeChannelID(ch)
		if id == "" {
			continue
		}
		if !isNumericID(id) {
			id = strings.ToLower(id)
		}
		normalized[id] = struct{}{}
	}
	return &Source{client: client, channels: normalized}
}

// Validate resolves every configured channel against the API and logs the
// ones the bot cannot access. Inaccessible channels stay configured; they
// may become reachable later.
func (s *Source) Validate(ctx context.Context) {
	for id := range s.channels {
		if _, err := s.client.GetChat(ctx, apiChatID(id)); err != nil {
			log.Printf("[TELEGRAM] cannot access channel %q: %v", id, err)
		} else {
			log.Printf("[TELEGRAM] watching channel %q", id)
		}
	}
}

// Updates starts a long-polling loop and streams matching channel messages
// until the context is cancelled. Poll errors are logged and retried with
// backoff, never surfaced per message.
func (s *Source) Updates(ctx context.Context) (<-chan domain.Message, error) {
	out := make(chan domain.Message)

	go func() {
		defer close(out)

		var offset int64
		failures := 0
		for {
			if ctx.Err() != nil {
				return
			}

			updates, err := s.client.GetUpdates(ctx, offset, 100, s.client.pollTimeout)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				wait := exponentialBackoff(min(failures, 5))
				log.Printf("[TELEGRAM] getUpdates failed (retrying in %s): %v", wait, err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(wait):
				}
				continue
			}
			failures = 0

			for _, u := range updates {
				if u.UpdateID >= offset {
					offset = u.UpdateID + 1
				}
				msg, ok := s.toMessage(u)
				if !ok {
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// History fetches up to limit recent updates via the Bot API's negative
// offset and returns the ones from watched channels. Telegram retains
// updates for roughly 24 hours, so this is a bounded backlog, not a full
// channel history.
func (s *Source) History(ctx context.Context, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	updates, err := s.client.GetUpdates(ctx, int64(-limit), limit, 0)
	if err != nil {
		return nil, err
	}

	msgs := make([]domain.Message, 0, len(updates))
	for _, u := range updates {
		if msg, ok := s.toMessage(u); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

// toMessage converts an update into a domain message, dropping updates from
// unwatched chats. Media captions count as text.
func (s *Source) toMessage(u Update) (domain.Message, bool) {
	post := u.ChannelPost
	if post == nil {
		post = u.Message
	}
	if post == nil {
		return domain.Message{}, false
	}
	if !s.watched(post.Chat) {
		return domain.Message{}, false
	}

	text := post.Text
	if text == "" {
		text = post.Caption
	}

	return domain.Message{
		ChannelID:   channelIdentifier(post.Chat),
		ChannelName: channelDisplayName(post.Chat),
		ID:          post.MessageID,
		Text:        text,
		Date:        time.Unix(post.Date, 0).UTC(),
	}, true
}

func (s *Source) watched(chat APIChat) bool {
	if len(s.channels) == 0 {
		return false
	}
	if chat.Username != "" {
		if _, ok := s.channels[strings.ToLower(chat.Username)]; ok {
			return true
		}
	}
	_, ok := s.channels[strconv.FormatInt(chat.ID, 10)]
	return ok
}

func channelIdentifier(chat APIChat) string {
	if chat.Username != "" {
		return chat.Username
	}
	return strconv.FormatInt(chat.ID, 10)
}

func channelDisplayName(chat APIChat) string {
	if chat.Username != "" {
		return "@" + chat.Username
	}
	if chat.Title != "" {
		return chat.Title
	}
	return "Channel " + strconv.FormatInt(chat.ID, 10)
}
