package ports

import (
	"context"
	"time"

	"github.com/resper/paperless-onS/internal/core/domain"
)

// DocumentStore is the document-management service holding documents and their entities.
type DocumentStore interface {
	GetDocument(ctx context.Context, id int) (*domain.Document, error)
	DownloadDocument(ctx context.Context, id int) (*domain.DownloadedFile, error)
	ListEntities(ctx context.Context, kind domain.EntityKind) ([]domain.Entity, error)
	CreateEntity(ctx context.Context, kind domain.EntityKind, name string) (domain.Entity, error)
	UpdateDocument(ctx context.Context, id int, update domain.MetadataUpdate) (*domain.Document, error)
	SearchDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	Ping(ctx context.Context) error
}

// LanguageModel runs chat completions, optionally with an attached image.
type LanguageModel interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

// ProcessingHistory persists pipeline audit records.
type ProcessingHistory interface {
	Create(ctx context.Context, record *domain.ProcessingRecord) error
	Complete(ctx context.Context, id int64, title, textSource string, tokens int, snapshot domain.AnalysisSnapshot) error
	Fail(ctx context.Context, id int64, title, step, message string) error
	MarkMetadataUpdated(ctx context.Context, id int64) error
	MarkLatestMetadataUpdated(ctx context.Context, documentID int) error
	GetByID(ctx context.Context, id int64) (*domain.ProcessingRecord, error)
	List(ctx context.Context, filter domain.HistoryFilter) ([]domain.ProcessingRecord, error)
}

// PromptConfigurationStore persists named modular prompt sets.
type PromptConfigurationStore interface {
	Create(ctx context.Context, cfg *domain.PromptConfiguration) error
	Update(ctx context.Context, cfg *domain.PromptConfiguration) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.PromptConfiguration, error)
	List(ctx context.Context) ([]domain.PromptConfiguration, error)
}

// SettingsStore is the key/value settings table.
type SettingsStore interface {
	GetAll(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, values map[string]string) error
}

// APICallRecorder keeps a log of outbound calls. Implementations must not block callers on failure.
type APICallRecorder interface {
	RecordCall(ctx context.Context, call domain.APICall)
}

// ProcessQueue carries asynchronous processing requests to workers.
type ProcessQueue interface {
	PublishProcessRequest(ctx context.Context, req domain.ProcessRequest) error
	SubscribeProcessRequests(ctx context.Context, handler func(context.Context, domain.ProcessRequest) error) error
}

// DocumentLocker serialises processing of the same document across instances.
type DocumentLocker interface {
	Lock(ctx context.Context, documentID int, ttl time.Duration) (unlock func(), err error)
}

// PDFTextExtractor reads the embedded text layer of a PDF.
type PDFTextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (text string, pages int, err error)
}

// PageRenderer produces a raster image of a PDF's first page.
type PageRenderer interface {
	RenderFirstPage(ctx context.Context, data []byte) (*domain.ImageInput, error)
}

// Localizer resolves user-facing strings for a language.
type Localizer interface {
	Translate(lang, key string) string
}

// ProcessObserver receives pipeline measurements.
type ProcessObserver interface {
	ObserveRun(status, step string, duration time.Duration)
	ObserveTokens(model string, usage domain.TokenUsage)
}
