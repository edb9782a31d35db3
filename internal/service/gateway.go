package service

import (
	"context"
	"errors"

	"github.com/spec-kit/civic-service/internal/domain"
	"github.com/spec-kit/civic-service/internal/repository"
)

// NotificationKind names what happened to a report conversation.
type NotificationKind string

const (
	NotificationAssignedExternal NotificationKind = "report_assigned_external"
	NotificationResolved         NotificationKind = "report_resolved"
)

// Notification asks for every participant of a conversation to be told about an event.
type Notification struct {
	ConversationID int64
	ReportID       int64
	Kind           NotificationKind
}

// Notifier accepts notifications for delivery. It must not block on delivery;
// an error only means the notification was not accepted.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// ConversationGateway manages the coordination thread attached to a report.
type ConversationGateway interface {
	FindOrCreateConversation(ctx context.Context, reportID int64, participants []int64, isInternal bool) (*domain.Conversation, error)
	// FindConversationByReport returns nil without error when the report has none.
	FindConversationByReport(ctx context.Context, reportID int64) (*domain.Conversation, error)
	AddParticipantIfAbsent(ctx context.Context, conversationID, userID int64) error
}

type conversationGateway struct {
	conversations repository.ConversationRepository
}

// NewConversationGateway adapts the conversation store to the gateway contract.
func NewConversationGateway(conversations repository.ConversationRepository) ConversationGateway {
	return &conversationGateway{conversations: conversations}
}

func (g *conversationGateway) FindOrCreateConversation(ctx context.Context, reportID int64, participants []int64, isInternal bool) (*domain.Conversation, error) {
	conv, _, err := g.conversations.FindOrCreate(ctx, reportID, uniqueIDs(participants), isInternal)
	if err != nil {
		return nil, storeError(err, "conversation", map[string]any{"report_id": reportID})
	}
	return conv, nil
}

func (g *conversationGateway) FindConversationByReport(ctx context.Context, reportID int64) (*domain.Conversation, error) {
	conv, err := g.conversations.FindByReport(ctx, reportID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, "conversation", map[string]any{"report_id": reportID})
	}
	return conv, nil
}

func (g *conversationGateway) AddParticipantIfAbsent(ctx context.Context, conversationID, userID int64) error {
	if _, err := g.conversations.AddParticipant(ctx, conversationID, userID); err != nil {
		return storeError(err, "conversation", map[string]any{"conversation_id": conversationID})
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
