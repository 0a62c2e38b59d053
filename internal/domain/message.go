package domain

import (
	"fmt"
	"strings"
	"time"
)

// Message is a single channel message handed to the matching pipeline
type Message struct {
	ChannelID   string    `json:"channelId"`
	ChannelName string    `json:"channelName"`
	ID          int64     `json:"id"`
	Text        string    `json:"text"`
	Date        time.Time `json:"date"`
}

// Key uniquely identifies a message across channels, used for deduplication
func (m Message) Key() string {
	return fmt.Sprintf("%s:%d", m.ChannelID, m.ID)
}

// Link builds a t.me permalink to the message. Public channels link by
// username, private ones by the numeric id with the -100 prefix stripped.
func (m Message) Link() string {
	id := strings.TrimPrefix(m.ChannelID, "@")
	if strings.HasPrefix(id, "-100") {
		return fmt.Sprintf("https://t.me/c/%s/%d", id[4:], m.ID)
	}
	if id == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s/%d", id, m.ID)
}

// MatchRecord is the persisted form of a match, one row per product per message
type MatchRecord struct {
	ID             int64     `json:"id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	ProductName    string    `json:"productName"`
	MatchedKeyword string    `json:"matchedKeyword"`
	Price          *float64  `json:"price,omitempty"`
	Currency       string    `json:"currency,omitempty"`
	ChannelName    string    `json:"channelName"`
	MessageID      int64     `json:"messageId"`
	MessageText    string    `json:"messageText"`
	MessageLink    string    `json:"messageLink"`
	MessageDate    time.Time `json:"messageDate"`
}
