package models

import "errors"

// Custom errors
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionTerminal     = errors.New("session already reached a terminal state")
	ErrParticipantNotFound = errors.New("participant not found in session")
	ErrInvalidTransition   = errors.New("invalid session state transition")
	ErrInvalidSample       = errors.New("malformed position sample")
	ErrBaselineNotFound    = errors.New("ghost baseline not found")
	ErrQueueFull           = errors.New("session event queue is full")
)
