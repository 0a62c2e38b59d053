package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/8nevil8/telegram-channel-monitor/internal/domain"
)

const notifyMessageLimit = 500

// Notifier delivers match alerts to a Telegram chat through the Bot API.
type Notifier struct {
	client          *Client
	chatID          string
	includeLink     bool
	includeKeywords bool
}

// NewNotifier creates a notifier posting to the given chat. chatID accepts
// the same formats as channel identifiers.
func NewNotifier(client *Client, chatID string, includeLink, includeKeywords bool) *Notifier {
	return &Notifier{
		client:          client,
		chatID:          apiChatID(NormalizeChannelID(chatID)),
		includeLink:     includeLink,
		includeKeywords: includeKeywords,
	}
}

// SendMatch formats and sends one alert for a matched product.
func (n *Notifier) SendMatch(ctx context.Context, match domain.MatchResult, msg domain.Message) error {
	return n.client.SendMessage(ctx, n.chatID, n.renderMatch(match, msg))
}

// renderMatch builds the Markdown alert body. Euro amounts carry a trailing
// symbol, dollar amounts a leading one, matching how each is written.
func (n *Notifier) renderMatch(match domain.MatchResult, msg domain.Message) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("🔔 *Found: %s*\n", match.ProductName))

	if msg.ChannelName != "" {
		parts = append(parts, fmt.Sprintf("📢 *Channel:* %s", msg.ChannelName))
	}
	if !msg.Date.IsZero() {
		parts = append(parts, fmt.Sprintf("🕒 *Posted:* %s", msg.Date.Format("2006-01-02 15:04:05")))
	}
	if n.includeKeywords && match.MatchedKeyword != "" {
		parts = append(parts, fmt.Sprintf("🔑 *Keywords:* %s", match.MatchedKeyword))
	}
	if match.Price != nil {
		currency := match.Currency
		if currency == "" {
			currency = "$"
		}
		if currency == "€" {
			parts = append(parts, fmt.Sprintf("💰 *Price:* %.2f%s", *match.Price, currency))
		} else {
			parts = append(parts, fmt.Sprintf("💰 *Price:* %s%.2f", currency, *match.Price))
		}
	}

	parts = append(parts, "")
	parts = append(parts, fmt.Sprintf("📝 *Message:*\n%s", truncate(msg.Text, notifyMessageLimit)))

	if n.includeLink {
		if link := msg.Link(); link != "" {
			parts = append(parts, fmt.Sprintf("\n🔗 [View Original Message](%s)", link))
		}
	}

	return strings.Join(parts, "\n")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
