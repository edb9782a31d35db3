package domain

import "time"

// Conversation is the coordination thread attached to a report.
type Conversation struct {
	ID           int64
	ReportID     int64
	IsInternal   bool
	Participants []int64
	CreatedAt    time.Time
}

// HasParticipant reports whether userID is already part of the thread.
func (c *Conversation) HasParticipant(userID int64) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}
