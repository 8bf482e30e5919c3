package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mkarlsen/riskgate/internal/database"
	"github.com/mkarlsen/riskgate/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// rowScanner abstracts pgx.Row and pgx.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const userColumns = `id, username, password_hash, registered_latitude, registered_longitude,
	registered_address, otp_email, is_blocked, blocked_until, created_at, updated_at`

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var otpEmail *string
	var blockedUntil *time.Time

	err := scanner.Scan(
		&user.ID, &user.Username, &user.PasswordHash,
		&user.RegisteredLocation.Latitude, &user.RegisteredLocation.Longitude,
		&user.RegisteredLocation.Address,
		&otpEmail, &user.IsBlocked, &blockedUntil,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.OTPEmail = otpEmail
	user.BlockedUntil = blockedUntil

	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, username, password_hash, registered_latitude, registered_longitude,
			registered_address, otp_email, is_blocked, blocked_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query,
		user.ID, user.Username, user.PasswordHash,
		user.RegisteredLocation.Latitude, user.RegisteredLocation.Longitude,
		user.RegisteredLocation.Address,
		user.OTPEmail, user.IsBlocked, user.BlockedUntil,
		user.CreatedAt, user.UpdatedAt,
	))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, username))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

// UpdateBlockStatus sets both lock fields in one statement. A nil
// blockedUntil together with blocked=true is an indefinite admin block;
// blocked=false clears both fields.
func (r *UserRepository) UpdateBlockStatus(ctx context.Context, id string, blocked bool, blockedUntil *time.Time) error {
	if !blocked {
		blockedUntil = nil
	}

	query := `UPDATE users SET is_blocked = $1, blocked_until = $2, updated_at = $3 WHERE id = $4`

	result, err := r.db.Pool.Exec(ctx, query, blocked, blockedUntil, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClearExpiredBlocks removes system blocks whose deadline has passed.
// Admin blocks (blocked_until IS NULL) are never touched.
func (r *UserRepository) ClearExpiredBlocks(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users SET is_blocked = false, blocked_until = NULL, updated_at = $1
		WHERE is_blocked = true AND blocked_until IS NOT NULL AND blocked_until <= $1
	`

	result, err := r.db.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Pool.Exec(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Counts returns total and currently blocked user counts for admin stats.
func (r *UserRepository) Counts(ctx context.Context) (total, blocked int64, err error) {
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_blocked) FROM users`

	if err := r.db.Pool.QueryRow(ctx, query).Scan(&total, &blocked); err != nil {
		return 0, 0, database.MapPostgresError(err)
	}
	return total, blocked, nil
}
