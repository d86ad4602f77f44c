package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ammarkhassawneh/mlops-accidents/internal/db"
	"github.com/ammarkhassawneh/mlops-accidents/internal/repository"
)

// PredictionRepository handles prediction record data access.
type PredictionRepository struct {
	db *db.DB
}

func NewPredictionRepository(d *db.DB) *PredictionRepository {
	return &PredictionRepository{db: d}
}

// Create inserts a prediction record. Rows are never updated afterwards.
// The creation time is written explicitly so the value handed back equals
// the persisted one.
func (r *PredictionRepository) Create(ctx context.Context, p *db.Prediction) error {
	now := time.Now()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO predictions (owner_id, features, severity, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.OwnerID, string(p.Features), p.Severity, p.Latitude, p.Longitude, now)
	if err != nil {
		return fmt.Errorf("inserting prediction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading insert id: %w", err)
	}

	p.ID = id
	p.CreatedAt = now

	return nil
}

func (r *PredictionRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*db.Prediction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, features, severity, latitude, longitude, created_at
		FROM predictions
		WHERE owner_id = ?
		ORDER BY id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing predictions: %w", err)
	}
	defer rows.Close()

	var preds []*db.Prediction
	for rows.Next() {
		p := &db.Prediction{}
		var features string
		if err := rows.Scan(&p.ID, &p.OwnerID, &features, &p.Severity, &p.Latitude, &p.Longitude, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning prediction: %w", err)
		}
		p.Features = []byte(features)
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

var _ repository.PredictionRepository = (*PredictionRepository)(nil)
