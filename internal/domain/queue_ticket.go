package domain

import (
	"fmt"
	"time"
)

// QueueTicket is a citizen's place in the queue of one office service.
type QueueTicket struct {
	ID         string
	ServiceID  int64
	TicketCode string
	CreatedAt  time.Time
}

// FormatTicketCode renders the display label shown to citizens.
func FormatTicketCode(serviceID, sequence int64) string {
	return fmt.Sprintf("S%d-%d", serviceID, sequence)
}
