package models

type LiveSessionStatus string

const (
	LiveSessionStatusStarting LiveSessionStatus = "starting"
	LiveSessionStatusRunning  LiveSessionStatus = "running"
	LiveSessionStatusStopped  LiveSessionStatus = "stopped"
	LiveSessionStatusError    LiveSessionStatus = "error"
)

func (s LiveSessionStatus) IsActive() bool {
	return s == LiveSessionStatusStarting || s == LiveSessionStatusRunning
}
