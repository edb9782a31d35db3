package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/civic-service/internal/domain"
)

// OfficeRepository resolves categories, offices and office membership.
type OfficeRepository interface {
	FindCategoryWithOffice(ctx context.Context, categoryID int64) (*domain.CategoryOffice, error)
	FindMembership(ctx context.Context, userID, officeID int64) (*domain.OfficeMembership, error)
	ListStaff(ctx context.Context, officeID int64) ([]int64, error)
}

type officeRepository struct {
	pool *pgxpool.Pool
}

// NewOfficeRepository constructs repository.
func NewOfficeRepository(pool *pgxpool.Pool) OfficeRepository {
	return &officeRepository{pool: pool}
}

func (r *officeRepository) FindCategoryWithOffice(ctx context.Context, categoryID int64) (*domain.CategoryOffice, error) {
	const query = `
        SELECT c.id, c.name, c.office_id, c.external_office_id,
               o.id, o.name, o.is_external,
               eo.id, eo.name, eo.is_external
        FROM categories c
        JOIN offices o ON o.id = c.office_id
        LEFT JOIN offices eo ON eo.id = c.external_office_id
        WHERE c.id=$1`

	var (
		result      domain.CategoryOffice
		extID       *int64
		extName     *string
		extExternal *bool
	)
	if err := r.pool.QueryRow(ctx, query, categoryID).Scan(
		&result.Category.ID,
		&result.Category.Name,
		&result.Category.OfficeID,
		&result.Category.ExternalOfficeID,
		&result.Office.ID,
		&result.Office.Name,
		&result.Office.IsExternal,
		&extID,
		&extName,
		&extExternal,
	); err != nil {
		return nil, mapPgError(err)
	}
	if extID != nil {
		result.ExternalOffice = &domain.Office{
			ID:         *extID,
			Name:       derefString(extName),
			IsExternal: extExternal != nil && *extExternal,
		}
	}
	return &result, nil
}

func (r *officeRepository) FindMembership(ctx context.Context, userID, officeID int64) (*domain.OfficeMembership, error) {
	const query = `
        SELECT user_id, office_id, role
        FROM office_members WHERE user_id=$1 AND office_id=$2`
	var membership domain.OfficeMembership
	if err := r.pool.QueryRow(ctx, query, userID, officeID).Scan(
		&membership.UserID,
		&membership.OfficeID,
		&membership.Role,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &membership, nil
}

func (r *officeRepository) ListStaff(ctx context.Context, officeID int64) ([]int64, error) {
	const query = `SELECT user_id FROM office_members WHERE office_id=$1 ORDER BY user_id`
	rows, err := r.pool.Query(ctx, query, officeID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
