package telegram

import "strings"

// NormalizeChannelID reduces the channel identifier formats users paste into
// configuration to what the Bot API accepts: a bare username or a numeric id.
//
// Supported: https://t.me/name, http://t.me/name, t.me/name, @name, name,
// -1001234567890.
func NormalizeChannelID(channelID string) string {
	s := strings.TrimSpace(channelID)
	if s == "" {
		return ""
	}

	if isNumericID(s) {
		return s
	}

	if idx := strings.Index(strings.ToLower(s), "t.me/"); idx >= 0 {
		s = s[idx+len("t.me/"):]
		// Drop trailing path segments and query params.
		if cut := strings.IndexAny(s, "/?"); cut >= 0 {
			s = s[:cut]
		}
		return strings.TrimSpace(s)
	}

	return strings.TrimPrefix(s, "@")
}

// apiChatID formats a normalized identifier for Bot API chat_id parameters:
// usernames need the @ prefix, numeric ids go as-is.
func apiChatID(normalized string) string {
	if normalized == "" || isNumericID(normalized) {
		return normalized
	}
	return "@" + normalized
}

func isNumericID(s string) bool {
	trimmed := strings.TrimPrefix(s, "-")
	if trimmed == "" {
		return false
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
