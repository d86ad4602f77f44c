package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ammarkhassawneh/mlops-accidents/internal/audit"
	"github.com/ammarkhassawneh/mlops-accidents/internal/db"
	"github.com/ammarkhassawneh/mlops-accidents/internal/repository/memory"
	"github.com/ammarkhassawneh/mlops-accidents/internal/scoring"
)

// stubScorer answers with a fixed severity or error without any network.
type stubScorer struct {
	severity float64
	err      error
	calls    int
}

func (s *stubScorer) Predict(ctx context.Context, features *scoring.FeatureVector) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.severity, nil
}

func testFeatures() *scoring.FeatureVector {
	return &scoring.FeatureVector{
		YearAcc: 2021, VictimAge: 60, Vma: 50, Jour: 7, Mois: 12,
		Lat: 48.6, Long: 2.89, Hour: 17, NbVictim: 2, NbVehicules: 1,
	}
}

func newPredictionFixture(scorer Scorer) (*PredictionService, *memory.Repository, *db.User) {
	repo := memory.New()
	recorder := audit.NewStoreRecorder(repo.Activity())
	svc := NewPredictionService(repo.Predictions(), scorer, recorder)

	user := &db.User{Name: "alice", Email: "alice@example.com"}
	repo.Create(context.Background(), user, "hash")
	return svc, repo, user
}

func TestSubmitPersistsOwnedRecord(t *testing.T) {
	scorer := &stubScorer{severity: 0.73}
	svc, repo, alice := newPredictionFixture(scorer)
	ctx := context.Background()

	pred, err := svc.Submit(ctx, alice, testFeatures())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if pred.Severity != 0.73 {
		t.Errorf("Expected severity 0.73, got %g", pred.Severity)
	}
	if pred.OwnerID != alice.ID {
		t.Errorf("Expected owner %d, got %d", alice.ID, pred.OwnerID)
	}
	if pred.Latitude != 48.6 || pred.Longitude != 2.89 {
		t.Errorf("Unexpected coordinates: %g, %g", pred.Latitude, pred.Longitude)
	}

	preds, err := repo.ListByOwner(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(preds) != 1 {
		t.Fatalf("Expected 1 persisted prediction, got %d", len(preds))
	}

	entries, _ := repo.ListActivityByUser(ctx, alice.ID)
	if len(entries) != 1 {
		t.Errorf("Expected 1 activity entry, got %d", len(entries))
	}
}

func TestSubmitValidationFailsBeforeScoring(t *testing.T) {
	scorer := &stubScorer{severity: 0.5}
	svc, _, alice := newPredictionFixture(scorer)
	ctx := context.Background()

	cases := []func(*scoring.FeatureVector){
		func(f *scoring.FeatureVector) { f.Lat = 91 },
		func(f *scoring.FeatureVector) { f.Lat = -91 },
		func(f *scoring.FeatureVector) { f.Long = 181 },
		func(f *scoring.FeatureVector) { f.Long = -181 },
		func(f *scoring.FeatureVector) { f.Hour = 24 },
		func(f *scoring.FeatureVector) { f.Mois = 0 },
		func(f *scoring.FeatureVector) { f.Jour = 32 },
		func(f *scoring.FeatureVector) { f.NbVictim = -1 },
	}
	for i, mutate := range cases {
		f := testFeatures()
		mutate(f)
		if _, err := svc.Submit(ctx, alice, f); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: expected ErrValidation, got %v", i, err)
		}
	}

	if scorer.calls != 0 {
		t.Errorf("Expected no scoring calls for invalid payloads, got %d", scorer.calls)
	}
}

func TestSubmitUpstreamFailureWritesNothing(t *testing.T) {
	scorer := &stubScorer{err: scoring.ErrUnavailable}
	svc, repo, alice := newPredictionFixture(scorer)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, alice, testFeatures()); !errors.Is(err, scoring.ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}

	preds, _ := repo.ListByOwner(ctx, alice.ID)
	if len(preds) != 0 {
		t.Errorf("Expected no persisted prediction after upstream failure, got %d", len(preds))
	}
	entries, _ := repo.ListActivityByUser(ctx, alice.ID)
	if len(entries) != 0 {
		t.Errorf("Expected no activity entry after upstream failure, got %d", len(entries))
	}
}

func TestListForEnforcesOwnership(t *testing.T) {
	scorer := &stubScorer{severity: 0.4}
	svc, repo, alice := newPredictionFixture(scorer)
	ctx := context.Background()

	bob := &db.User{Name: "bob", Email: "bob@example.com"}
	repo.Create(ctx, bob, "hash")

	if _, err := svc.Submit(ctx, alice, testFeatures()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// bob (role user) reading alice's predictions is rejected.
	if _, err := svc.ListFor(ctx, bob, alice.ID); !errors.Is(err, ErrInsufficientPermission) {
		t.Errorf("Expected ErrInsufficientPermission, got %v", err)
	}

	// bob reads his own (empty) list.
	preds, err := svc.ListFor(ctx, bob, bob.ID)
	if err != nil {
		t.Fatalf("ListFor self failed: %v", err)
	}
	if len(preds) != 0 {
		t.Errorf("Expected 0 predictions for bob, got %d", len(preds))
	}

	// alice is admin (first user) and may read bob's.
	if _, err := svc.ListFor(ctx, alice, bob.ID); err != nil {
		t.Errorf("Expected admin to read any owner, got %v", err)
	}
}
