package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/civic-service/internal/domain"
)

// QueueRepository holds pending office queue tickets.
type QueueRepository interface {
	// NextSequence atomically allocates the next ticket number for a service.
	NextSequence(ctx context.Context, serviceID int64) (int64, error)
	Insert(ctx context.Context, ticket *domain.QueueTicket) error
	CountPending(ctx context.Context, serviceID int64) (int, error)
	// ListPending returns the service's queue, oldest first.
	ListPending(ctx context.Context, serviceID int64) ([]domain.QueueTicket, error)
	// DeleteIfPresent removes a ticket and reports whether this call removed it.
	DeleteIfPresent(ctx context.Context, ticketID string) (bool, error)
}

type queueRepository struct {
	pool *pgxpool.Pool
}

// NewQueueRepository instantiates the postgres-backed queue store.
func NewQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &queueRepository{pool: pool}
}

func (r *queueRepository) NextSequence(ctx context.Context, serviceID int64) (int64, error) {
	const query = `
        INSERT INTO queue_counters (service_id, last_value) VALUES ($1, 1)
        ON CONFLICT (service_id) DO UPDATE SET last_value = queue_counters.last_value + 1
        RETURNING last_value`
	var seq int64
	if err := r.pool.QueryRow(ctx, query, serviceID).Scan(&seq); err != nil {
		return 0, mapPgError(err)
	}
	return seq, nil
}

func (r *queueRepository) Insert(ctx context.Context, ticket *domain.QueueTicket) error {
	const query = `
        INSERT INTO queue_tickets (service_id, ticket_code)
        VALUES ($1, $2)
        RETURNING id::text, created_at`
	err := r.pool.QueryRow(ctx, query, ticket.ServiceID, ticket.TicketCode).
		Scan(&ticket.ID, &ticket.CreatedAt)
	return mapPgError(err)
}

func (r *queueRepository) CountPending(ctx context.Context, serviceID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM queue_tickets WHERE service_id=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, serviceID).Scan(&count); err != nil {
		return 0, mapPgError(err)
	}
	return count, nil
}

func (r *queueRepository) ListPending(ctx context.Context, serviceID int64) ([]domain.QueueTicket, error) {
	const query = `
        SELECT id::text, service_id, ticket_code, created_at
        FROM queue_tickets WHERE service_id=$1
        ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, serviceID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	return scanQueueTickets(rows)
}

func (r *queueRepository) DeleteIfPresent(ctx context.Context, ticketID string) (bool, error) {
	const query = `DELETE FROM queue_tickets WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, ticketID)
	if err != nil {
		return false, mapPgError(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func scanQueueTickets(rows pgx.Rows) ([]domain.QueueTicket, error) {
	result := []domain.QueueTicket{}
	for rows.Next() {
		var ticket domain.QueueTicket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.ServiceID,
			&ticket.TicketCode,
			&ticket.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
