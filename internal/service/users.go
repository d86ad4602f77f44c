package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ammarkhassawneh/mlops-accidents/internal/audit"
	"github.com/ammarkhassawneh/mlops-accidents/internal/auth"
	"github.com/ammarkhassawneh/mlops-accidents/internal/db"
	"github.com/ammarkhassawneh/mlops-accidents/internal/repository"
)

var (
	// ErrValidation marks a request rejected before touching storage or
	// the network.
	ErrValidation = errors.New("validation failed")

	// ErrBadCredentials is returned on login with an unknown name or a
	// wrong password. Deliberately indistinguishable.
	ErrBadCredentials = errors.New("incorrect username or password")

	// ErrInsufficientPermission is returned when the caller's role or
	// ownership does not allow the operation.
	ErrInsufficientPermission = errors.New("insufficient permission")
)

// UserService implements registration, login, and user management on top
// of the credential store.
type UserService struct {
	users      repository.UserRepository
	jwtManager *auth.JWTManager
	recorder   audit.Recorder
}

func NewUserService(users repository.UserRepository, jwtManager *auth.JWTManager, recorder audit.Recorder) *UserService {
	return &UserService{users: users, jwtManager: jwtManager, recorder: recorder}
}

func (s *UserService) JWTManager() *auth.JWTManager {
	return s.jwtManager
}

// Register creates a new user. The storage layer assigns the admin role
// to the first user ever created; the role is never taken from input.
func (s *UserService) Register(ctx context.Context, name, email, password, readRights, writeRights string) (*db.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &db.User{
		Name:        name,
		Email:       email,
		ReadRights:  readRights,
		WriteRights: writeRights,
	}
	if err := s.users.Create(ctx, user, hash); err != nil {
		return nil, err
	}

	if err := s.recorder.Record(ctx, user.ID, "user registered"); err != nil {
		return nil, fmt.Errorf("recording activity: %w", err)
	}

	return user, nil
}

// Authenticate checks the password and mints a bearer token carrying the
// user's current role.
func (s *UserService) Authenticate(ctx context.Context, name, password string) (string, *db.User, error) {
	user, err := s.users.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrBadCredentials
		}
		return "", nil, err
	}

	cred, err := s.users.CredentialByUserID(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}

	if !auth.CheckPasswordHash(password, cred.PasswordHash) {
		return "", nil, ErrBadCredentials
	}

	token, err := s.jwtManager.Mint(user.Name, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("minting token: %w", err)
	}

	if err := s.recorder.Record(ctx, user.ID, "user logged in"); err != nil {
		return "", nil, fmt.Errorf("recording activity: %w", err)
	}

	return token, user, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*db.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]*db.User, error) {
	return s.users.List(ctx)
}

// UpdateRights changes a user's read/write rights. The role itself is
// immutable after creation.
func (s *UserService) UpdateRights(ctx context.Context, id int64, readRights, writeRights string) error {
	return s.users.UpdateRights(ctx, id, readRights, writeRights)
}

func (s *UserService) UpdateProfile(ctx context.Context, id int64, name, email string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	return s.users.UpdateProfile(ctx, id, name, email)
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.users.Delete(ctx, id)
}
