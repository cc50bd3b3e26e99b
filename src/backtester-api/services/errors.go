package services

import "fmt"

var (
	ErrSessionNotFound       = fmt.Errorf("live session not found")
	ErrMaxSessionsReached    = fmt.Errorf("maximum number of live sessions reached")
	ErrSessionAlreadyStarted = fmt.Errorf("live session already started")
)
