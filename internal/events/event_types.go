package events

import (
	"time"

	"github.com/spec-kit/civic-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReportSubmitted        EventType = "report_submitted"
	EventReportStatusChanged    EventType = "report_status_changed"
	EventReportAssignedExternal EventType = "report_assigned_external"
	EventConversationNotified   EventType = "conversation_notified"
	EventTicketIssued           EventType = "ticket_issued"
	EventTicketServed           EventType = "ticket_served"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID *int64          `json:"user_id,omitempty"`
	Role   domain.UserRole `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	ReportID  int64     `json:"report_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// ReportStatusChangedPayload payload.
type ReportStatusChangedPayload struct {
	Action    domain.ReportAction `json:"action"`
	OldStatus domain.ReportStatus `json:"old_status"`
	NewStatus domain.ReportStatus `json:"new_status"`
	External  bool                `json:"external"`
}

// ReportAssignedExternalPayload payload.
type ReportAssignedExternalPayload struct {
	MaintainerID   int64 `json:"maintainer_id"`
	ConversationID int64 `json:"conversation_id,omitempty"`
}

// ConversationNotifiedPayload carries a notification for every participant.
type ConversationNotifiedPayload struct {
	ConversationID int64   `json:"conversation_id"`
	Kind           string  `json:"kind"`
	Recipients     []int64 `json:"recipients"`
}

// TicketPayload describes an issued or served queue ticket.
type TicketPayload struct {
	TicketID   string `json:"ticket_id"`
	ServiceID  int64  `json:"service_id"`
	TicketCode string `json:"ticket_code"`
}
