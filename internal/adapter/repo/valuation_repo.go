package repo

import (
	"context"
	"fmt"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// ValuationRepositoryPG implements domain.ValuationRepository on PostgreSQL.
type ValuationRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewValuationRepository creates a valuation repository backed by the shared SQL runner.
func NewValuationRepository(sql infra.SQLExecutor) *ValuationRepositoryPG {
	return &ValuationRepositoryPG{sql: sql}
}

// Create inserts a valuation record. Records are written once by the pipeline
// and never updated afterwards.
func (r *ValuationRepositoryPG) Create(ctx context.Context, v *domain.Valuation) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertValuation,
		v.ID,
		v.OwnerID,
		v.JobID,
		v.ItemName,
		v.Maker,
		v.Era,
		v.Category,
		v.Description,
		v.PriceRange.Low,
		v.PriceRange.High,
		v.Currency,
		v.Reasoning,
		v.References,
		v.ImageURL,
	)
	if err := row.Scan(&v.CreatedAt); err != nil {
		return fmt.Errorf("insert valuation: %w", err)
	}
	return nil
}

// GetForOwner fetches a valuation only when it belongs to the given owner.
func (r *ValuationRepositoryPG) GetForOwner(ctx context.Context, id, ownerID string) (*domain.Valuation, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectValuationForOwner, id, ownerID)
	var v domain.Valuation
	if err := row.Scan(
		&v.ID,
		&v.OwnerID,
		&v.JobID,
		&v.ItemName,
		&v.Maker,
		&v.Era,
		&v.Category,
		&v.Description,
		&v.PriceRange.Low,
		&v.PriceRange.High,
		&v.Currency,
		&v.Reasoning,
		&v.References,
		&v.ImageURL,
		&v.CreatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select valuation: %w", err)
	}
	return &v, nil
}

var _ domain.ValuationRepository = (*ValuationRepositoryPG)(nil)
