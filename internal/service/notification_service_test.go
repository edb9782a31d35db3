package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/civic-service/internal/events"
	apperrors "github.com/spec-kit/civic-service/pkg/util"
)

func TestDeliverPublishesToEveryParticipant(t *testing.T) {
	store := newFakeConversationStore()
	conv, _, err := store.FindOrCreate(context.Background(), 1, []int64{500, 600, 77}, false)
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	svc := NewNotificationService(NotificationDependencies{
		Dispatcher:    events.NewInMemoryDispatcher(zap.NewNop()),
		Conversations: store,
		Publisher:     publisher,
		Channel:       "civic:notifications",
		Logger:        zap.NewNop(),
	})
	svc.RegisterHandlers()

	err = svc.Deliver(context.Background(), Notification{ConversationID: conv.ID, ReportID: 1, Kind: NotificationResolved})
	require.NoError(t, err)

	require.Len(t, publisher.payloads, 1)
	assert.Equal(t, "civic:notifications", publisher.channels[0])
	event, ok := publisher.payloads[0].(events.Event)
	require.True(t, ok)
	assert.Equal(t, events.EventConversationNotified, event.Type)
	payload := event.Payload.(events.ConversationNotifiedPayload)
	assert.Equal(t, []int64{500, 600, 77}, payload.Recipients)
	assert.Equal(t, string(NotificationResolved), payload.Kind)
}

func TestDeliverUnknownConversation(t *testing.T) {
	svc := NewNotificationService(NotificationDependencies{Conversations: newFakeConversationStore()})

	err := svc.Deliver(context.Background(), Notification{ConversationID: 9, Kind: NotificationResolved})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestConversationGatewayAddIsIdempotent(t *testing.T) {
	store := newFakeConversationStore()
	gw := NewConversationGateway(store)
	ctx := context.Background()

	conv, err := gw.FindOrCreateConversation(ctx, 3, []int64{1, 2, 2, 1}, true)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, conv.Participants)

	require.NoError(t, gw.AddParticipantIfAbsent(ctx, conv.ID, 2))
	require.NoError(t, gw.AddParticipantIfAbsent(ctx, conv.ID, 3))

	found, err := gw.FindConversationByReport(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, found.Participants)

	missing, err := gw.FindConversationByReport(ctx, 4)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
