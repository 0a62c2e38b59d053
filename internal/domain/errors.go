package domain

import "errors"

var (
	// ErrInvalidPattern is returned when a configured regex rule fails to compile
	ErrInvalidPattern = errors.New("invalid match pattern")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrTelegramAPIFailure is returned when a Telegram Bot API request fails
	ErrTelegramAPIFailure = errors.New("telegram API request failed")

	// ErrChannelNotFound is returned when a configured channel cannot be resolved
	ErrChannelNotFound = errors.New("channel not found")

	// ErrStoreUnavailable is returned when the match store cannot be reached
	ErrStoreUnavailable = errors.New("match store unavailable")
)
