package service

import "errors"

var (
	// ErrAlreadyRunning is returned by Run when the session loop is active.
	ErrAlreadyRunning = errors.New("session already running")
	// ErrSessionClosed is returned by Run after the session was torn down.
	ErrSessionClosed = errors.New("session closed")
)
