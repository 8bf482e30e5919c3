package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mkarlsen/riskgate/internal/database"
	"github.com/mkarlsen/riskgate/internal/models"
)

const timeWindowSettingKey = "unusual_time_windows"

// SettingsRepository stores admin-tunable configuration as single keyed
// rows with a JSONB value.
type SettingsRepository struct {
	db *database.DB
}

func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetTimeWindowPolicy returns the configured expected-hours policy. When no
// policy has been saved the result is an empty range list: the time-of-day
// signal only penalizes attempts once an administrator has configured
// windows.
func (r *SettingsRepository) GetTimeWindowPolicy(ctx context.Context) (*models.TimeWindowPolicy, error) {
	query := `SELECT value, updated_at FROM settings WHERE key = $1`

	var valueJSON []byte
	var updatedAt time.Time

	err := r.db.Pool.QueryRow(ctx, query, timeWindowSettingKey).Scan(&valueJSON, &updatedAt)
	if err != nil {
		if errors.Is(database.MapPostgresError(err), models.ErrNotFound) {
			return &models.TimeWindowPolicy{Ranges: []models.TimeRange{}}, nil
		}
		return nil, database.MapPostgresError(err)
	}

	var ranges []models.TimeRange
	if err := json.Unmarshal(valueJSON, &ranges); err != nil {
		return nil, fmt.Errorf("failed to decode time window policy: %w", err)
	}

	return &models.TimeWindowPolicy{Ranges: ranges, UpdatedAt: updatedAt}, nil
}

// SetTimeWindowPolicy upserts the policy. Callers validate before saving.
func (r *SettingsRepository) SetTimeWindowPolicy(ctx context.Context, policy *models.TimeWindowPolicy) (*models.TimeWindowPolicy, error) {
	valueJSON, err := json.Marshal(policy.Ranges)
	if err != nil {
		return nil, fmt.Errorf("failed to encode time window policy: %w", err)
	}

	now := time.Now()

	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.Pool.Exec(ctx, query, timeWindowSettingKey, valueJSON, now); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &models.TimeWindowPolicy{Ranges: policy.Ranges, UpdatedAt: now}, nil
}
