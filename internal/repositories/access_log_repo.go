package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mkarlsen/riskgate/internal/database"
	"github.com/mkarlsen/riskgate/internal/models"
)

// AccessLogRepository persists the append-only record of scored login
// attempts. Rows are only ever inserted or have their MFA/login outcome
// flags flipped; nothing is rewritten or removed.
type AccessLogRepository struct {
	db *database.DB
}

func NewAccessLogRepository(db *database.DB) *AccessLogRepository {
	return &AccessLogRepository{db: db}
}

const accessLogColumns = `id, user_id, username, timestamp, latitude, longitude,
	risk_factors, total_risk_score, action, mfa_completed, login_success`

func scanAccessLogRow(scanner rowScanner) (*models.AccessLog, error) {
	var entry models.AccessLog
	var factorsJSON []byte

	err := scanner.Scan(
		&entry.ID, &entry.UserID, &entry.Username, &entry.Timestamp,
		&entry.Location.Latitude, &entry.Location.Longitude,
		&factorsJSON, &entry.TotalRiskScore, &entry.Action,
		&entry.MFACompleted, &entry.LoginSuccess,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if err := json.Unmarshal(factorsJSON, &entry.RiskFactors); err != nil {
		return nil, fmt.Errorf("failed to decode risk factors: %w", err)
	}

	return &entry, nil
}

func scanAccessLogRows(rows pgx.Rows) ([]*models.AccessLog, error) {
	defer rows.Close()

	entries := make([]*models.AccessLog, 0)

	for rows.Next() {
		entry, err := scanAccessLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access log: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}

func (r *AccessLogRepository) Create(ctx context.Context, entry *models.AccessLog) (*models.AccessLog, error) {
	entry.ID = uuid.New().String()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	factorsJSON, err := json.Marshal(entry.RiskFactors)
	if err != nil {
		return nil, fmt.Errorf("failed to encode risk factors: %w", err)
	}

	query := `
		INSERT INTO access_logs (id, user_id, username, timestamp, latitude, longitude,
			risk_factors, total_risk_score, action, mfa_completed, login_success)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + accessLogColumns

	return scanAccessLogRow(r.db.Pool.QueryRow(ctx, query,
		entry.ID, entry.UserID, entry.Username, entry.Timestamp,
		entry.Location.Latitude, entry.Location.Longitude,
		factorsJSON, entry.TotalRiskScore, entry.Action,
		entry.MFACompleted, entry.LoginSuccess,
	))
}

func (r *AccessLogRepository) GetByID(ctx context.Context, id string) (*models.AccessLog, error) {
	query := `SELECT ` + accessLogColumns + ` FROM access_logs WHERE id = $1`
	return scanAccessLogRow(r.db.Pool.QueryRow(ctx, query, id))
}

// MarkMFACompleted records that the challenge attached to an attempt was
// passed, which also makes the attempt a successful login.
func (r *AccessLogRepository) MarkMFACompleted(ctx context.Context, id string) error {
	query := `UPDATE access_logs SET mfa_completed = true, login_success = true WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *AccessLogRepository) ListRecent(ctx context.Context, limit, offset int) ([]*models.AccessLog, error) {
	query := `SELECT ` + accessLogColumns + ` FROM access_logs ORDER BY timestamp DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query access logs: %w", err)
	}

	return scanAccessLogRows(rows)
}

func (r *AccessLogRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.AccessLog, error) {
	query := `SELECT ` + accessLogColumns + ` FROM access_logs WHERE user_id = $1
		ORDER BY timestamp DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query access logs: %w", err)
	}

	return scanAccessLogRows(rows)
}

// ActionCounts aggregates ledger outcomes since a cutoff for admin stats.
func (r *AccessLogRepository) ActionCounts(ctx context.Context, since time.Time) (map[models.Action]int64, error) {
	query := `SELECT action, COUNT(*) FROM access_logs WHERE timestamp >= $1 GROUP BY action`

	rows, err := r.db.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query action counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Action]int64)
	for rows.Next() {
		var action models.Action
		var count int64
		if err := rows.Scan(&action, &count); err != nil {
			return nil, database.MapPostgresError(err)
		}
		counts[action] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return counts, nil
}
