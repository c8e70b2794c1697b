package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidSignature = errors.New("invalid wallet signature")
	ErrNoTurnsLeft      = errors.New("no betting turns left")
	ErrWSDisconnect     = errors.New("websocket disconnected")
	ErrQueueStopped     = errors.New("job queue stopped")
	ErrNoHandler        = errors.New("no handler registered for job type")
)
