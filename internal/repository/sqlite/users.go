package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/ammarkhassawneh/mlops-accidents/internal/db"
	"github.com/ammarkhassawneh/mlops-accidents/internal/repository"
)

// UserRepository handles user and credential data access.
type UserRepository struct {
	db *db.DB
}

func NewUserRepository(d *db.DB) *UserRepository {
	return &UserRepository{db: d}
}

// Create inserts the user and its credential in one transaction. The role
// is decided inside the transaction: the first row ever inserted becomes
// the admin. The single-writer connection serializes concurrent
// registrations, so two simultaneous first registrations cannot both win.
func (r *UserRepository) Create(ctx context.Context, user *db.User, passwordHash string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var count int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return fmt.Errorf("counting users: %w", err)
	}

	role := db.RoleUser
	if count == 0 {
		role = db.RoleAdmin
	}

	now := time.Now()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO users (name, email, role, read_rights, write_rights, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, user.Name, user.Email, role, user.ReadRights, user.WriteRights, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateIdentity
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash) VALUES (?, ?)
	`, id, passwordHash); err != nil {
		return fmt.Errorf("inserting credential: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing user: %w", err)
	}

	user.ID = id
	user.Role = role
	user.CreatedAt = now
	user.UpdatedAt = now

	return nil
}

const userColumns = `id, name, email, role, read_rights, write_rights, created_at, updated_at`

func scanUser(row *sql.Row) (*db.User, error) {
	u := &db.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.ReadRights, &u.WriteRights, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*db.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByName(ctx context.Context, name string) (*db.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE name = ?`, name)
	return scanUser(row)
}

func (r *UserRepository) CredentialByUserID(ctx context.Context, userID int64) (*db.Credential, error) {
	c := &db.Credential{}
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, password_hash FROM credentials WHERE user_id = ?
	`, userID).Scan(&c.UserID, &c.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning credential: %w", err)
	}
	return c, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*db.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*db.User
	for rows.Next() {
		u := &db.User{}
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.ReadRights, &u.WriteRights, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) UpdateRights(ctx context.Context, id int64, readRights, writeRights string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET read_rights = ?, write_rights = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, readRights, writeRights, id)
	if err != nil {
		return fmt.Errorf("updating rights: %w", err)
	}
	return requireOneRow(res)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, name, email string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = ?, email = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, name, email, id)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateIdentity
		}
		return fmt.Errorf("updating profile: %w", err)
	}
	return requireOneRow(res)
}

// Delete removes the user. Credentials and activity entries cascade;
// owned predictions do not, so a user with predictions cannot be deleted.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrOwnedRecords
		}
		return fmt.Errorf("deleting user: %w", err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) &&
		(serr.ExtendedCode == sqlite3.ErrConstraintForeignKey || serr.ExtendedCode == sqlite3.ErrConstraintTrigger)
}

var _ repository.UserRepository = (*UserRepository)(nil)
