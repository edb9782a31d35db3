package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/civic-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ServiceID int64 `json:"service_id" validate:"required,gt=0"`
}

// CreateTicketResponse exposes the ticket code as the list code shown to citizens.
type CreateTicketResponse struct {
	ID       string `json:"id"`
	ListCode string `json:"list_code"`
}

// NextCustomerRequest keeps service_ids raw so a malformed list can be treated
// as "nothing to serve" instead of a decoding failure.
type NextCustomerRequest struct {
	ServiceIDs json.RawMessage `json:"service_ids"`
}

// IDs decodes service_ids; ok is false when the field is not a list of ids.
func (r NextCustomerRequest) IDs() ([]int64, bool) {
	if len(r.ServiceIDs) == 0 {
		return nil, false
	}
	var ids []int64
	if err := json.Unmarshal(r.ServiceIDs, &ids); err != nil {
		return nil, false
	}
	return ids, true
}

// TicketResponse describes a queue ticket.
type TicketResponse struct {
	ID         string    `json:"id"`
	ServiceID  int64     `json:"service_id"`
	TicketCode string    `json:"ticket_code"`
	CreatedAt  time.Time `json:"created_at"`
}

// QueueLengthResponse is one entry of the office display.
type QueueLengthResponse struct {
	ServiceID int64 `json:"service_id"`
	Pending   int   `json:"pending"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(ticket *domain.QueueTicket) TicketResponse {
	return TicketResponse{
		ID:         ticket.ID,
		ServiceID:  ticket.ServiceID,
		TicketCode: ticket.TicketCode,
		CreatedAt:  ticket.CreatedAt,
	}
}
