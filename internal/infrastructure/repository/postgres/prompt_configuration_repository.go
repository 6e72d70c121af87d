package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/resper/paperless-onS/internal/core/domain"
)

const uniqueViolation = "23505"

type PromptConfigurationRepository struct {
	db *sql.DB
}

func NewPromptConfigurationRepository(db *sql.DB) *PromptConfigurationRepository {
	return &PromptConfigurationRepository{db: db}
}

func (r *PromptConfigurationRepository) Create(ctx context.Context, cfg *domain.PromptConfiguration) error {
	prompts, err := json.Marshal(cfg.Prompts)
	if err != nil {
		return fmt.Errorf("marshal prompts: %w", err)
	}
	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
INSERT INTO prompt_configurations (name, description, prompts, use_json_mode, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING id
`, cfg.Name, cfg.Description, prompts, cfg.UseJSONMode, now)
	if err := row.Scan(&cfg.ID); err != nil {
		return mapConfigurationError("create prompt configuration", cfg.Name, err)
	}
	cfg.CreatedAt, cfg.UpdatedAt = now, now
	return nil
}

func (r *PromptConfigurationRepository) Update(ctx context.Context, cfg *domain.PromptConfiguration) error {
	prompts, err := json.Marshal(cfg.Prompts)
	if err != nil {
		return fmt.Errorf("marshal prompts: %w", err)
	}
	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
UPDATE prompt_configurations
SET name = $2, description = $3, prompts = $4, use_json_mode = $5, updated_at = $6
WHERE id = $1
RETURNING created_at
`, cfg.ID, cfg.Name, cfg.Description, prompts, cfg.UseJSONMode, now)
	if err := row.Scan(&cfg.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return configurationNotFound("update prompt configuration", cfg.ID)
		}
		return mapConfigurationError("update prompt configuration", cfg.Name, err)
	}
	cfg.UpdatedAt = now
	return nil
}

func (r *PromptConfigurationRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM prompt_configurations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete prompt configuration: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete prompt configuration rows affected: %w", err)
	}
	if rows == 0 {
		return configurationNotFound("delete prompt configuration", id)
	}
	return nil
}

const configurationColumns = `id, name, description, prompts, use_json_mode, created_at, updated_at`

func (r *PromptConfigurationRepository) GetByID(ctx context.Context, id int64) (*domain.PromptConfiguration, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+configurationColumns+` FROM prompt_configurations WHERE id = $1`, id)
	cfg, err := scanConfiguration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, configurationNotFound("get prompt configuration", id)
		}
		return nil, fmt.Errorf("get prompt configuration: %w", err)
	}
	return &cfg, nil
}

func (r *PromptConfigurationRepository) List(ctx context.Context) ([]domain.PromptConfiguration, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+configurationColumns+` FROM prompt_configurations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list prompt configurations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PromptConfiguration, 0)
	for rows.Next() {
		cfg, err := scanConfiguration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prompt configuration: %w", err)
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompt configurations: %w", err)
	}
	return out, nil
}

func scanConfiguration(row rowScanner) (domain.PromptConfiguration, error) {
	var cfg domain.PromptConfiguration
	var prompts []byte
	if err := row.Scan(&cfg.ID, &cfg.Name, &cfg.Description, &prompts, &cfg.UseJSONMode, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
		return domain.PromptConfiguration{}, err
	}
	if len(prompts) > 0 {
		if err := json.Unmarshal(prompts, &cfg.Prompts); err != nil {
			return domain.PromptConfiguration{}, fmt.Errorf("unmarshal prompts: %w", err)
		}
	}
	return cfg, nil
}

func mapConfigurationError(operation, name string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.WrapError(domain.ErrConflict, operation, fmt.Errorf("configuration name %q already exists", name))
	}
	return fmt.Errorf("%s: %w", operation, err)
}

func configurationNotFound(operation string, id int64) error {
	return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("prompt configuration %d not found", id))
}
