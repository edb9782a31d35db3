package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/civic-service/internal/domain"
)

// ReportHistoryRepository reads the audit trail of report transitions.
// Entries are written by ReportRepository inside the state transaction.
type ReportHistoryRepository interface {
	ListByReport(ctx context.Context, reportID int64) ([]domain.ReportHistory, error)
}

type reportHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewReportHistoryRepository builds repository.
func NewReportHistoryRepository(pool *pgxpool.Pool) ReportHistoryRepository {
	return &reportHistoryRepository{pool: pool}
}

func insertHistory(ctx context.Context, q Querier, history *domain.ReportHistory) error {
	const query = `
        INSERT INTO report_history (report_id, actor_id, action, old_status, new_status, details)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	details := history.Details
	if details == nil {
		details = map[string]any{}
	}
	return mapPgError(q.QueryRow(ctx, query,
		history.ReportID,
		history.ActorID,
		history.Action,
		history.OldStatus,
		history.NewStatus,
		details,
	).Scan(&history.ID, &history.CreatedAt))
}

func (r *reportHistoryRepository) ListByReport(ctx context.Context, reportID int64) ([]domain.ReportHistory, error) {
	const query = `
        SELECT id, report_id, actor_id, action, old_status, new_status, details, created_at
        FROM report_history WHERE report_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	result := []domain.ReportHistory{}
	for rows.Next() {
		var history domain.ReportHistory
		if err := rows.Scan(
			&history.ID,
			&history.ReportID,
			&history.ActorID,
			&history.Action,
			&history.OldStatus,
			&history.NewStatus,
			&history.Details,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
