package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/civic-service/internal/domain"
)

// ConversationRepository persists report conversations and their participants.
type ConversationRepository interface {
	// FindOrCreate returns the report's conversation, creating it with the
	// given participants when absent. Existing conversations are returned as is.
	FindOrCreate(ctx context.Context, reportID int64, participants []int64, isInternal bool) (*domain.Conversation, bool, error)
	FindByReport(ctx context.Context, reportID int64) (*domain.Conversation, error)
	// AddParticipant inserts userID unless already present and reports whether it was added.
	AddParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	ListParticipants(ctx context.Context, conversationID int64) ([]int64, error)
}

type conversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository instantiates repository.
func NewConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepository{pool: pool}
}

func (r *conversationRepository) FindOrCreate(ctx context.Context, reportID int64, participants []int64, isInternal bool) (*domain.Conversation, bool, error) {
	const insertConversation = `
        INSERT INTO conversations (report_id, is_internal) VALUES ($1, $2)
        ON CONFLICT (report_id) DO NOTHING
        RETURNING id, created_at`
	const insertParticipant = `
        INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2)
        ON CONFLICT DO NOTHING`

	var (
		conv    *domain.Conversation
		created bool
	)
	err := WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		candidate := &domain.Conversation{ReportID: reportID, IsInternal: isInternal}
		err := tx.QueryRow(ctx, insertConversation, reportID, isInternal).Scan(&candidate.ID, &candidate.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			existing, err := findConversation(ctx, tx, reportID)
			if err != nil {
				return err
			}
			conv = existing
			return nil
		}
		if err != nil {
			return mapPgError(err)
		}
		for _, userID := range participants {
			if _, err := tx.Exec(ctx, insertParticipant, candidate.ID, userID); err != nil {
				return mapPgError(err)
			}
		}
		ids, err := listParticipants(ctx, tx, candidate.ID)
		if err != nil {
			return err
		}
		candidate.Participants = ids
		conv = candidate
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return conv, created, nil
}

func (r *conversationRepository) FindByReport(ctx context.Context, reportID int64) (*domain.Conversation, error) {
	return findConversation(ctx, r.pool, reportID)
}

func (r *conversationRepository) AddParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	const query = `
        INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2)
        ON CONFLICT DO NOTHING`
	cmd, err := r.pool.Exec(ctx, query, conversationID, userID)
	if err != nil {
		return false, mapPgError(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *conversationRepository) ListParticipants(ctx context.Context, conversationID int64) ([]int64, error) {
	return listParticipants(ctx, r.pool, conversationID)
}

func findConversation(ctx context.Context, q Querier, reportID int64) (*domain.Conversation, error) {
	const query = `SELECT id, report_id, is_internal, created_at FROM conversations WHERE report_id=$1`
	var conv domain.Conversation
	if err := q.QueryRow(ctx, query, reportID).Scan(
		&conv.ID,
		&conv.ReportID,
		&conv.IsInternal,
		&conv.CreatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	ids, err := listParticipants(ctx, q, conv.ID)
	if err != nil {
		return nil, err
	}
	conv.Participants = ids
	return &conv, nil
}

func listParticipants(ctx context.Context, q Querier, conversationID int64) ([]int64, error) {
	const query = `
        SELECT user_id FROM conversation_participants
        WHERE conversation_id=$1 ORDER BY joined_at ASC, user_id ASC`
	rows, err := q.Query(ctx, query, conversationID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
