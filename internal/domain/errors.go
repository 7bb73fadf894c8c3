package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTokenExpired     = errors.New("access token expired")
	ErrWSDisconnect     = errors.New("websocket disconnected")
	ErrRetriesExhausted = errors.New("reconnect retries exhausted")
	ErrLockHeld         = errors.New("lock already held")
)
