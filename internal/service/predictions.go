package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ammarkhassawneh/mlops-accidents/internal/audit"
	"github.com/ammarkhassawneh/mlops-accidents/internal/db"
	"github.com/ammarkhassawneh/mlops-accidents/internal/repository"
	"github.com/ammarkhassawneh/mlops-accidents/internal/scoring"
)

// Scorer is the outbound scoring call, satisfied by *scoring.Client.
type Scorer interface {
	Predict(ctx context.Context, features *scoring.FeatureVector) (float64, error)
}

// PredictionService proxies feature vectors to the scoring service and
// reconciles results into persisted prediction records.
type PredictionService struct {
	predictions repository.PredictionRepository
	scorer      Scorer
	recorder    audit.Recorder
}

func NewPredictionService(predictions repository.PredictionRepository, scorer Scorer, recorder audit.Recorder) *PredictionService {
	return &PredictionService{predictions: predictions, scorer: scorer, recorder: recorder}
}

// ValidateFeatures rejects out-of-range inputs before any network call.
func ValidateFeatures(f *scoring.FeatureVector) error {
	switch {
	case f.Lat < -90 || f.Lat > 90:
		return fmt.Errorf("%w: lat must be in [-90,90]", ErrValidation)
	case f.Long < -180 || f.Long > 180:
		return fmt.Errorf("%w: long must be in [-180,180]", ErrValidation)
	case f.Hour < 0 || f.Hour > 23:
		return fmt.Errorf("%w: hour must be in [0,23]", ErrValidation)
	case f.Mois < 1 || f.Mois > 12:
		return fmt.Errorf("%w: mois must be in [1,12]", ErrValidation)
	case f.Jour < 1 || f.Jour > 31:
		return fmt.Errorf("%w: jour must be in [1,31]", ErrValidation)
	case f.VictimAge < 0:
		return fmt.Errorf("%w: victim_age must not be negative", ErrValidation)
	case f.NbVictim < 0 || f.NbVehicules < 0:
		return fmt.Errorf("%w: victim and vehicle counts must not be negative", ErrValidation)
	}
	return nil
}

// Submit validates the payload, calls the scoring service under its
// deadline, and on success persists a record owned by the caller. The
// owner is always the authenticated principal, never client input. No
// retry happens here; on 504/500 the caller retries.
func (s *PredictionService) Submit(ctx context.Context, principal *db.User, features *scoring.FeatureVector) (*db.Prediction, error) {
	if err := ValidateFeatures(features); err != nil {
		return nil, err
	}

	severity, err := s.scorer.Predict(ctx, features)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("encoding features: %w", err)
	}

	pred := &db.Prediction{
		OwnerID:   principal.ID,
		Features:  encoded,
		Severity:  severity,
		Latitude:  features.Lat,
		Longitude: features.Long,
	}
	if err := s.predictions.Create(ctx, pred); err != nil {
		return nil, err
	}

	if err := s.recorder.Record(ctx, principal.ID, "prediction created"); err != nil {
		return nil, fmt.Errorf("recording activity: %w", err)
	}

	return pred, nil
}

// ListFor returns the predictions owned by ownerID. Admins may read any
// owner; everyone else only their own.
func (s *PredictionService) ListFor(ctx context.Context, principal *db.User, ownerID int64) ([]*db.Prediction, error) {
	if principal.Role != db.RoleAdmin && principal.ID != ownerID {
		return nil, ErrInsufficientPermission
	}
	return s.predictions.ListByOwner(ctx, ownerID)
}
