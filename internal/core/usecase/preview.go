package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/core/ports"
	"github.com/resper/paperless-onS/internal/core/prompting"
)

// PromptPreviewUseCase renders the prompt a document would be analysed with,
// without calling the model.
type PromptPreviewUseCase struct {
	store    ports.DocumentStore
	settings ports.SettingsService
	configs  ports.PromptConfigurationStore
	logger   *slog.Logger
}

func NewPromptPreviewUseCase(store ports.DocumentStore, settings ports.SettingsService, configs ports.PromptConfigurationStore, logger *slog.Logger) *PromptPreviewUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &PromptPreviewUseCase{store: store, settings: settings, configs: configs, logger: logger}
}

// Preview applies the request overrides on top of the stored settings. A
// custom legacy template tests the legacy path and ignores stored modular
// fields; an explicit modular set or saved configuration replaces them.
func (uc *PromptPreviewUseCase) Preview(ctx context.Context, req domain.PromptPreviewRequest) (*domain.PromptPreview, error) {
	if req.DocumentID <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "preview prompt", fmt.Errorf("document id must be positive, got %d", req.DocumentID))
	}

	settings, err := uc.settings.Analysis(ctx)
	if err != nil {
		return nil, fmt.Errorf("load analysis settings: %w", err)
	}
	templates := prompting.Templates{
		Legacy:        settings.PromptTemplate,
		System:        settings.PromptSystem,
		Modular:       settings.Modular,
		JSONMode:      settings.UseJSONMode,
		MaxTextLength: settings.MaxTextLength,
	}
	if strings.TrimSpace(req.PromptTemplate) != "" {
		templates.Legacy = req.PromptTemplate
		templates.Modular = domain.ModularPromptSet{}
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		templates.System = req.SystemPrompt
	}
	if req.Modular != nil {
		templates.Modular = *req.Modular
	}
	if req.ConfigurationID != nil {
		if uc.configs == nil {
			return nil, domain.WrapError(domain.ErrNotConfigured, "load prompt configuration", errors.New("no configuration store"))
		}
		cfg, err := uc.configs.GetByID(ctx, *req.ConfigurationID)
		if err != nil {
			return nil, fmt.Errorf("load prompt configuration %d: %w", *req.ConfigurationID, err)
		}
		templates.Modular = cfg.Prompts
		templates.JSONMode = cfg.UseJSONMode
	}

	doc, err := uc.store.GetDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	entities, failed := fetchEntities(ctx, uc.store, allEntityKinds)
	for kind, fetchErr := range failed {
		uc.logger.Warn("entity_fetch_failed", "document_id", doc.ID, "kind", string(kind), "error", fetchErr)
	}

	pctx := prompting.Context{
		Filename:     doc.Filename(),
		CurrentTitle: doc.Title,
		Entities:     entities,
	}

	mode := req.TextSourceMode
	if mode == "" {
		mode = settings.TextSourceMode
	}
	var prompt prompting.Prompt
	if mode == domain.TextSourceAIOCR {
		prompt = prompting.BuildVision(templates, pctx)
	} else {
		pctx.ExtractedText = doc.Content
		if strings.TrimSpace(pctx.ExtractedText) == "" {
			pctx.ExtractedText = fallbackNoStoreText
		}
		prompt = prompting.Build(templates, pctx)
	}

	return &domain.PromptPreview{
		DocumentID:    doc.ID,
		DocumentTitle: doc.Title,
		Filename:      pctx.Filename,
		Style:         prompt.Style.String(),
		SystemPrompt:  prompt.System,
		UserPrompt:    prompt.User,
		TextStats:     prompt.Stats,
	}, nil
}
