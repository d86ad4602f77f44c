package repository

import (
	"context"
	"errors"

	"github.com/ammarkhassawneh/mlops-accidents/internal/db"
)

var (
	// ErrDuplicateIdentity is returned when a user's name or email is
	// already taken.
	ErrDuplicateIdentity = errors.New("name or email already registered")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrOwnedRecords is returned when deleting a user that still owns
	// prediction records.
	ErrOwnedRecords = errors.New("user still owns prediction records")
)

// UserRepository persists users together with their credential record.
type UserRepository interface {
	// Create inserts the user and its credential atomically. The first
	// user ever created is assigned the admin role; the decision is made
	// inside the same transaction as the insert.
	Create(ctx context.Context, user *db.User, passwordHash string) error
	GetByID(ctx context.Context, id int64) (*db.User, error)
	GetByName(ctx context.Context, name string) (*db.User, error)
	CredentialByUserID(ctx context.Context, userID int64) (*db.Credential, error)
	List(ctx context.Context) ([]*db.User, error)
	UpdateRights(ctx context.Context, id int64, readRights, writeRights string) error
	UpdateProfile(ctx context.Context, id int64, name, email string) error
	Delete(ctx context.Context, id int64) error
}

type PredictionRepository interface {
	Create(ctx context.Context, p *db.Prediction) error
	ListByOwner(ctx context.Context, ownerID int64) ([]*db.Prediction, error)
}

type RequestLogRepository interface {
	Create(ctx context.Context, entry *db.RequestLog) error
	List(ctx context.Context, limit int) ([]*db.RequestLog, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, entry *db.Activity) error
	ListByUser(ctx context.Context, userID int64) ([]*db.Activity, error)
}

type TestResultRepository interface {
	Create(ctx context.Context, result *db.TestResult) error
	List(ctx context.Context) ([]*db.TestResult, error)
}
