package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/felixgeelhaar/pulse/internal/identity/domain"
	sharedDomain "github.com/felixgeelhaar/pulse/internal/shared/domain"
	sharedPersistence "github.com/felixgeelhaar/pulse/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// ErrUserNotFound is returned when a user is not found.
var ErrUserNotFound = errors.New("user not found")

// SQLiteUserRepository handles persistence for users using SQLite.
type SQLiteUserRepository struct {
	dbConn *sql.DB
}

// NewSQLiteUserRepository creates a new SQLiteUserRepository.
func NewSQLiteUserRepository(dbConn *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{dbConn: dbConn}
}

func (r *SQLiteUserRepository) querier(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// Save persists a user to the database.
func (r *SQLiteUserRepository) Save(ctx context.Context, user *domain.User) error {
	q := r.querier(ctx)

	var existingName string
	err := q.QueryRowContext(ctx, `SELECT name FROM users WHERE id = ?`, user.ID().String()).Scan(&existingName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		_, err = q.ExecContext(ctx, `
			INSERT INTO users (id, email, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		`,
			user.ID().String(), user.Email().String(), user.Name().String(),
			user.CreatedAt().Format(time.RFC3339), user.UpdatedAt().Format(time.RFC3339),
		)
		return err
	}

	if existingName != user.Name().String() {
		_, err = q.ExecContext(ctx, `UPDATE users SET name = ? WHERE id = ?`, user.Name().String(), user.ID().String())
		return err
	}

	return nil
}

// FindByID retrieves a user by their ID.
func (r *SQLiteUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	q := r.querier(ctx)
	row := q.QueryRowContext(ctx, `SELECT id, email, name, created_at, updated_at FROM users WHERE id = ?`, id.String())
	user, err := r.scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// FindByEmail retrieves a user by their email address.
func (r *SQLiteUserRepository) FindByEmail(ctx context.Context, email domain.Email) (*domain.User, error) {
	q := r.querier(ctx)
	row := q.QueryRowContext(ctx, `SELECT id, email, name, created_at, updated_at FROM users WHERE email = ?`, email.String())
	user, err := r.scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// Delete removes a user from the database.
func (r *SQLiteUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q := r.querier(ctx)
	_, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id.String())
	return err
}

// ExistsByEmail checks if a user with the given email exists.
func (r *SQLiteUserRepository) ExistsByEmail(ctx context.Context, email domain.Email) (bool, error) {
	q := r.querier(ctx)
	var count int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, email.String()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *SQLiteUserRepository) scanUser(row *sql.Row) (*domain.User, error) {
	var idStr, emailStr, nameStr, createdStr, updatedStr string
	if err := row.Scan(&idStr, &emailStr, &nameStr, &createdStr, &updatedStr); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	email, err := domain.NewEmail(emailStr)
	if err != nil {
		return nil, err
	}
	name, err := domain.NewName(nameStr)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339, createdStr)
	if err != nil {
		return nil, err
	}
	updatedAt, err := time.Parse(time.RFC3339, updatedStr)
	if err != nil {
		return nil, err
	}

	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	baseAggregate := sharedDomain.RehydrateBaseAggregateRoot(baseEntity, 0)
	return domain.RehydrateUser(baseAggregate, email, name), nil
}
