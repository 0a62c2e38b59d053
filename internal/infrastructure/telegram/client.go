package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/8nevil8/telegram-channel-monitor/internal/domain"
)

// Client handles communication with the Telegram Bot API
type Client struct {
	httpClient  *http.Client
	token       string
	baseURL     string
	rateLimiter *rate.Limiter
	pollTimeout time.Duration
	debug       bool
}

// NewClient creates a new Bot API client. sendRate paces outbound messages;
// Telegram throttles bots that exceed roughly 30 messages per second and is
// far stricter per chat.
func NewClient(token, baseURL string, sendRate rate.Limit, pollTimeout time.Duration) *Client {
	if sendRate <= 0 {
		sendRate = rate.Limit(2)
	}
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			// Long polling holds the connection open for pollTimeout.
			Timeout: pollTimeout + 15*time.Second,
		},
		token:       token,
		baseURL:     baseURL,
		rateLimiter: rate.NewLimiter(sendRate, 1),
		pollTimeout: pollTimeout,
	}
}

// SetDebug toggles verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// apiResponse is the Bot API envelope common to every method
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// Update is one entry from getUpdates
type Update struct {
	UpdateID    int64       `json:"update_id"`
	Message     *APIMessage `json:"message"`
	ChannelPost *APIMessage `json:"channel_post"`
}

// APIMessage is the subset of the Bot API message object the monitor needs
type APIMessage struct {
	MessageID int64   `json:"message_id"`
	Date      int64   `json:"date"`
	Text      string  `json:"text"`
	Caption   string  `json:"caption"`
	Chat      APIChat `json:"chat"`
}

// APIChat identifies the chat a message was posted in
type APIChat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Username string `json:"username"`
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// call executes one Bot API method and unwraps the response envelope
func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", "telegram-channel-monitor/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTelegramAPIFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrTelegramAPIFailure, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", domain.ErrTelegramAPIFailure, err)
	}
	if !envelope.OK {
		if envelope.ErrorCode == http.StatusNotFound || envelope.ErrorCode == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", domain.ErrChannelNotFound, envelope.Description)
		}
		return nil, fmt.Errorf("%w: %s (code %d)", domain.ErrTelegramAPIFailure, envelope.Description, envelope.ErrorCode)
	}

	return envelope.Result, nil
}

// GetUpdates fetches pending updates. A negative offset asks for the most
// recent updates still retained by Telegram, which backs the history scan.
// timeout > 0 switches the call to long polling.
func (c *Client) GetUpdates(ctx context.Context, offset int64, limit int, timeout time.Duration) ([]Update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if timeout > 0 {
		params.Set("timeout", strconv.Itoa(int(timeout.Seconds())))
	}
	params.Set("allowed_updates", `["message","channel_post"]`)

	if c.debug {
		log.Printf("[TELEGRAM] getUpdates offset=%d limit=%d", offset, limit)
	}

	raw, err := c.call(ctx, "getUpdates", params)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("%w: decoding updates: %v", domain.ErrTelegramAPIFailure, err)
	}
	return updates, nil
}

// SendMessage sends a Markdown-formatted message to a chat. Retries up to 3
// times with backoff for transient failures.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	params := url.Values{}
	params.Set("chat_id", chatID)
	params.Set("text", text)
	params.Set("parse_mode", "Markdown")
	params.Set("disable_web_page_preview", "true")

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := c.call(ctx, "sendMessage", params)
		if err == nil {
			return nil
		}
		lastErr = err
		if c.debug {
			log.Printf("[TELEGRAM] sendMessage error (attempt %d): %v", attempt, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(exponentialBackoff(attempt)):
		}
	}
	return lastErr
}

// GetChat resolves a channel identifier, used to validate configuration at
// startup.
func (c *Client) GetChat(ctx context.Context, chatID string) (*APIChat, error) {
	params := url.Values{}
	params.Set("chat_id", chatID)

	raw, err := c.call(ctx, "getChat", params)
	if err != nil {
		return nil, err
	}

	var chat APIChat
	if err := json.Unmarshal(raw, &chat); err != nil {
		return nil, fmt.Errorf("%w: decoding chat: %v", domain.ErrTelegramAPIFailure, err)
	}
	return &chat, nil
}

// exponentialBackoff returns the wait before the given retry attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(250*(1<<attempt)) * time.Millisecond
}
