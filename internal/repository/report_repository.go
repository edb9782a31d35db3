package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/civic-service/internal/domain"
)

const (
	reportTable  = "reports"
	reportFields = `id, title, description, latitude, longitude, category_id, user_id, is_anonymous, photos,
        status, reject_explanation, assigned_office_id, assigned_external, external_maintainer_id,
        version, created_at, updated_at`
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ReportFilter captures listing parameters.
type ReportFilter struct {
	Statuses         []domain.ReportStatus
	CategoryID       *int64
	AssignedOfficeID *int64
	UserID           *int64
	MaintainerID     *int64
	Limit            int
	Offset           int
}

// ReportRepository encapsulates report persistence.
type ReportRepository interface {
	// Create stores a new report and its submission history entry atomically.
	Create(ctx context.Context, report *domain.Report, entry *domain.ReportHistory) error
	GetByID(ctx context.Context, id int64) (*domain.Report, error)
	// UpdateState writes the report if its version still matches report.Version
	// and appends entry in the same transaction. Returns ErrStaleState otherwise.
	UpdateState(ctx context.Context, report *domain.Report, entry *domain.ReportHistory) error
	List(ctx context.Context, filter ReportFilter) ([]domain.Report, error)
}

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository instantiates repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

func (r *reportRepository) Create(ctx context.Context, report *domain.Report, entry *domain.ReportHistory) error {
	if report.Photos == nil {
		report.Photos = []string{}
	}
	query, args, err := psql.Insert(reportTable).
		Columns("title", "description", "latitude", "longitude", "category_id", "user_id",
			"is_anonymous", "photos", "status").
		Values(report.Title, report.Description, report.Latitude, report.Longitude, report.CategoryID,
			report.UserID, report.IsAnonymous, report.Photos, report.Status).
		Suffix("RETURNING id, version, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build report insert: %w", err)
	}

	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query, args...).
			Scan(&report.ID, &report.Version, &report.CreatedAt, &report.UpdatedAt); err != nil {
			return mapPgError(err)
		}
		if entry == nil {
			return nil
		}
		entry.ReportID = report.ID
		return insertHistory(ctx, tx, entry)
	})
}

func (r *reportRepository) GetByID(ctx context.Context, id int64) (*domain.Report, error) {
	query, args, err := psql.Select(reportFields).From(reportTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build report select: %w", err)
	}
	report, err := scanReport(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapPgError(err)
	}
	return report, nil
}

func (r *reportRepository) UpdateState(ctx context.Context, report *domain.Report, entry *domain.ReportHistory) error {
	query, args, err := psql.Update(reportTable).
		Set("status", report.Status).
		Set("reject_explanation", report.RejectExplanation).
		Set("assigned_office_id", report.AssignedOfficeID).
		Set("assigned_external", report.AssignedExternal).
		Set("external_maintainer_id", report.ExternalMaintainerID).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": report.ID, "version": report.Version}).
		Suffix("RETURNING version, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build report update: %w", err)
	}

	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var version int64
		if err := tx.QueryRow(ctx, query, args...).Scan(&version, &report.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("report %d version %d: %w", report.ID, report.Version, ErrStaleState)
			}
			return mapPgError(err)
		}
		report.Version = version
		if entry == nil {
			return nil
		}
		entry.ReportID = report.ID
		return insertHistory(ctx, tx, entry)
	})
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]domain.Report, error) {
	builder := psql.Select(reportFields).From(reportTable)
	if len(filter.Statuses) > 0 {
		builder = builder.Where(sq.Eq{"status": filter.Statuses})
	}
	if filter.CategoryID != nil {
		builder = builder.Where(sq.Eq{"category_id": *filter.CategoryID})
	}
	if filter.AssignedOfficeID != nil {
		builder = builder.Where(sq.Eq{"assigned_office_id": *filter.AssignedOfficeID})
	}
	if filter.UserID != nil {
		builder = builder.Where(sq.Eq{"user_id": *filter.UserID})
	}
	if filter.MaintainerID != nil {
		builder = builder.Where(sq.Eq{"external_maintainer_id": *filter.MaintainerID})
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query, args, err := builder.OrderBy("updated_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build report list: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	result := []domain.Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *report)
	}
	return result, rows.Err()
}

func scanReport(row pgx.Row) (*domain.Report, error) {
	var report domain.Report
	if err := row.Scan(
		&report.ID,
		&report.Title,
		&report.Description,
		&report.Latitude,
		&report.Longitude,
		&report.CategoryID,
		&report.UserID,
		&report.IsAnonymous,
		&report.Photos,
		&report.Status,
		&report.RejectExplanation,
		&report.AssignedOfficeID,
		&report.AssignedExternal,
		&report.ExternalMaintainerID,
		&report.Version,
		&report.CreatedAt,
		&report.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &report, nil
}
