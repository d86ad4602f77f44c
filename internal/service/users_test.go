package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ammarkhassawneh/mlops-accidents/internal/audit"
	"github.com/ammarkhassawneh/mlops-accidents/internal/auth"
	"github.com/ammarkhassawneh/mlops-accidents/internal/db"
	"github.com/ammarkhassawneh/mlops-accidents/internal/repository"
	"github.com/ammarkhassawneh/mlops-accidents/internal/repository/memory"
)

func newUserService(repo *memory.Repository) *UserService {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	recorder := audit.NewStoreRecorder(repo.Activity())
	return NewUserService(repo, jwtManager, recorder)
}

func TestRegisterFirstUserBecomesAdmin(t *testing.T) {
	repo := memory.New()
	svc := newUserService(repo)
	ctx := context.Background()

	alice, err := svc.Register(ctx, "alice", "alice@example.com", "password123", "all", "all")
	if err != nil {
		t.Fatalf("Register alice failed: %v", err)
	}
	if alice.Role != db.RoleAdmin {
		t.Errorf("Expected first user to be admin, got %s", alice.Role)
	}

	bob, err := svc.Register(ctx, "bob", "bob@example.com", "password123", "own", "own")
	if err != nil {
		t.Fatalf("Register bob failed: %v", err)
	}
	if bob.Role != db.RoleUser {
		t.Errorf("Expected second user to be user, got %s", bob.Role)
	}
}

func TestRegisterDuplicateIdentity(t *testing.T) {
	repo := memory.New()
	svc := newUserService(repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "password123", "", ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Same name, different email.
	_, err := svc.Register(ctx, "alice", "other@example.com", "password123", "", "")
	if !errors.Is(err, repository.ErrDuplicateIdentity) {
		t.Errorf("Expected ErrDuplicateIdentity for duplicate name, got %v", err)
	}

	// Same email, different name.
	_, err = svc.Register(ctx, "alicia", "alice@example.com", "password123", "", "")
	if !errors.Is(err, repository.ErrDuplicateIdentity) {
		t.Errorf("Expected ErrDuplicateIdentity for duplicate email, got %v", err)
	}

	users, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("Expected 1 user after failed duplicates, got %d", len(users))
	}
}

func TestRegisterValidation(t *testing.T) {
	repo := memory.New()
	svc := newUserService(repo)
	ctx := context.Background()

	cases := []struct {
		name, email, password string
	}{
		{"", "a@example.com", "password123"},
		{"alice", "not-an-email", "password123"},
		{"alice", "a@example.com", "short"},
	}
	for _, c := range cases {
		if _, err := svc.Register(ctx, c.name, c.email, c.password, "", ""); !errors.Is(err, ErrValidation) {
			t.Errorf("Register(%q,%q,%q): expected ErrValidation, got %v", c.name, c.email, c.password, err)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	repo := memory.New()
	svc := newUserService(repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "password123", "", ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	token, user, err := svc.Authenticate(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if token == "" {
		t.Error("Expected a non-empty token")
	}

	claims, err := svc.JWTManager().Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Subject != "alice" || claims.Role != db.RoleAdmin {
		t.Errorf("Unexpected claims: subject=%s role=%s", claims.Subject, claims.Role)
	}

	if _, _, err := svc.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("Expected ErrBadCredentials for wrong password, got %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, "nobody", "password123"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("Expected ErrBadCredentials for unknown user, got %v", err)
	}

	// Registration and login both leave an activity entry.
	entries, err := repo.ListActivityByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListActivityByUser failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 activity entries, got %d", len(entries))
	}
}

func TestDeleteCascadesActivityOnly(t *testing.T) {
	repo := memory.New()
	svc := newUserService(repo)
	ctx := context.Background()

	alice, err := svc.Register(ctx, "alice", "alice@example.com", "password123", "", "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := svc.Delete(ctx, alice.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.Get(ctx, alice.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	entries, _ := repo.ListActivityByUser(ctx, alice.ID)
	if len(entries) != 0 {
		t.Errorf("Expected activity entries to cascade on delete, found %d", len(entries))
	}
}

func TestDeleteBlockedByOwnedPredictions(t *testing.T) {
	repo := memory.New()
	svc := newUserService(repo)
	ctx := context.Background()

	alice, err := svc.Register(ctx, "alice", "alice@example.com", "password123", "", "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := repo.CreatePrediction(ctx, &db.Prediction{
		OwnerID: alice.ID, Features: []byte("{}"), Severity: 0.5,
	}); err != nil {
		t.Fatalf("CreatePrediction failed: %v", err)
	}

	if err := svc.Delete(ctx, alice.ID); !errors.Is(err, repository.ErrOwnedRecords) {
		t.Errorf("Expected ErrOwnedRecords, got %v", err)
	}
}
