package models

import "time"

// Clock tracks replay time over the half-open window [StartTime, EndTime). A zero EndTime
// means the window is unbounded.
type Clock struct {
	StartTime   time.Time
	CurrentTime time.Time
	EndTime     time.Time
}

func (c *Clock) Add(timeToAdd time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(timeToAdd)
}

// AdvanceTo moves the clock forward to t. The clock never moves backwards.
func (c *Clock) AdvanceTo(t time.Time) {
	if t.After(c.CurrentTime) {
		c.CurrentTime = t
	}
}

func (c *Clock) IsExpired() bool {
	if c.EndTime.IsZero() {
		return false
	}

	return c.CurrentTime.Equal(c.EndTime) || c.CurrentTime.After(c.EndTime)
}

// Contains reports whether t falls inside the replay window.
func (c *Clock) Contains(t time.Time) bool {
	if !c.StartTime.IsZero() && t.Before(c.StartTime) {
		return false
	}

	if !c.EndTime.IsZero() && !t.Before(c.EndTime) {
		return false
	}

	return true
}

func NewClock(startTime time.Time, endTime time.Time) *Clock {
	return &Clock{
		StartTime:   startTime,
		CurrentTime: startTime,
		EndTime:     endTime,
	}
}
