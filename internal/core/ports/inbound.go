package ports

import (
	"context"

	"github.com/resper/paperless-onS/internal/core/domain"
)

// DocumentProcessor is the inbound contract for the analysis pipeline.
type DocumentProcessor interface {
	Process(ctx context.Context, req domain.ProcessRequest) (*domain.ProcessResult, error)
}

// MetadataApplier writes suggested metadata back to the document store.
type MetadataApplier interface {
	Apply(ctx context.Context, documentID int, suggested domain.SuggestedMetadata, policy domain.EntityPolicy) (*domain.ApplyResult, error)
}

// PromptPreviewer renders the prompt a document would be analysed with.
type PromptPreviewer interface {
	Preview(ctx context.Context, req domain.PromptPreviewRequest) (*domain.PromptPreview, error)
}

// TextExtractionService runs the local text extraction fallback for a document.
type TextExtractionService interface {
	ExtractText(ctx context.Context, documentID int) (*domain.ExtractionResult, error)
}

// SettingsService reads and updates the analysis settings.
type SettingsService interface {
	Analysis(ctx context.Context) (domain.AnalysisSettings, error)
	Update(ctx context.Context, values map[string]string) (domain.AnalysisSettings, error)
	ModularDefaults() domain.ModularPromptSet
}

// ProcessScheduler enqueues processing requests for the worker.
type ProcessScheduler interface {
	Enqueue(ctx context.Context, req domain.ProcessRequest) error
	EnqueueByTag(ctx context.Context, tagID int, template domain.ProcessRequest) (int, error)
}

// PromptConfigurationService manages named modular prompt sets.
type PromptConfigurationService interface {
	Create(ctx context.Context, cfg domain.PromptConfiguration) (*domain.PromptConfiguration, error)
	Update(ctx context.Context, cfg domain.PromptConfiguration) (*domain.PromptConfiguration, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.PromptConfiguration, error)
	List(ctx context.Context) ([]domain.PromptConfiguration, error)
}

// HistoryReader queries the processing audit trail.
type HistoryReader interface {
	List(ctx context.Context, filter domain.HistoryFilter) ([]domain.ProcessingRecord, error)
}
