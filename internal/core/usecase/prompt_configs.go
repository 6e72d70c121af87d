package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/core/ports"
)

const maxConfigurationNameLength = 100

// PromptConfigurationUseCase manages named modular prompt sets.
type PromptConfigurationUseCase struct {
	repo ports.PromptConfigurationStore
}

func NewPromptConfigurationUseCase(repo ports.PromptConfigurationStore) *PromptConfigurationUseCase {
	return &PromptConfigurationUseCase{repo: repo}
}

func (uc *PromptConfigurationUseCase) Create(ctx context.Context, cfg domain.PromptConfiguration) (*domain.PromptConfiguration, error) {
	if err := normalizeConfiguration(&cfg); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create prompt configuration", err)
	}
	if err := uc.repo.Create(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("create prompt configuration: %w", err)
	}
	return &cfg, nil
}

func (uc *PromptConfigurationUseCase) Update(ctx context.Context, cfg domain.PromptConfiguration) (*domain.PromptConfiguration, error) {
	if cfg.ID <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update prompt configuration", fmt.Errorf("configuration id must be positive"))
	}
	if err := normalizeConfiguration(&cfg); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update prompt configuration", err)
	}
	if err := uc.repo.Update(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("update prompt configuration: %w", err)
	}
	return &cfg, nil
}

func (uc *PromptConfigurationUseCase) Delete(ctx context.Context, id int64) error {
	if err := uc.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete prompt configuration: %w", err)
	}
	return nil
}

func (uc *PromptConfigurationUseCase) Get(ctx context.Context, id int64) (*domain.PromptConfiguration, error) {
	cfg, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get prompt configuration: %w", err)
	}
	return cfg, nil
}

func (uc *PromptConfigurationUseCase) List(ctx context.Context) ([]domain.PromptConfiguration, error) {
	items, err := uc.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list prompt configurations: %w", err)
	}
	return items, nil
}

func normalizeConfiguration(cfg *domain.PromptConfiguration) error {
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Description = strings.TrimSpace(cfg.Description)
	if cfg.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len([]rune(cfg.Name)) > maxConfigurationNameLength {
		return fmt.Errorf("name must be at most %d characters", maxConfigurationNameLength)
	}
	return nil
}
