package httpadapter

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/resper/paperless-onS/internal/config"
	"github.com/resper/paperless-onS/internal/core/domain"
)

type storeFake struct {
	doc       *domain.Document
	docs      []domain.Document
	entities  map[domain.EntityKind][]domain.Entity
	err       error
	pingErr   error
	lastQuery domain.DocumentFilter
}

func (f *storeFake) GetDocument(_ context.Context, id int) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc := *f.doc
	doc.ID = id
	return &doc, nil
}

func (f *storeFake) DownloadDocument(context.Context, int) (*domain.DownloadedFile, error) {
	return &domain.DownloadedFile{}, f.err
}

func (f *storeFake) ListEntities(_ context.Context, kind domain.EntityKind) ([]domain.Entity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entities[kind], nil
}

func (f *storeFake) CreateEntity(_ context.Context, _ domain.EntityKind, name string) (domain.Entity, error) {
	return domain.Entity{ID: 99, Name: name}, f.err
}

func (f *storeFake) UpdateDocument(_ context.Context, id int, _ domain.MetadataUpdate) (*domain.Document, error) {
	return &domain.Document{ID: id}, f.err
}

func (f *storeFake) SearchDocuments(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	f.lastQuery = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func (f *storeFake) Ping(context.Context) error { return f.pingErr }

type processorFake struct {
	result *domain.ProcessResult
	err    error
	got    domain.ProcessRequest
}

func (f *processorFake) Process(_ context.Context, req domain.ProcessRequest) (*domain.ProcessResult, error) {
	f.got = req
	return f.result, f.err
}

type schedulerFake struct {
	mu       sync.Mutex
	enqueued []domain.ProcessRequest
	byTag    int
	err      error
}

func (f *schedulerFake) Enqueue(_ context.Context, req domain.ProcessRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, req)
	return nil
}

func (f *schedulerFake) EnqueueByTag(_ context.Context, tagID int, template domain.ProcessRequest) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byTag = tagID
	f.enqueued = append(f.enqueued, template)
	return 3, f.err
}

type configsFake struct {
	created []domain.PromptConfiguration
	err     error
}

func (f *configsFake) Create(_ context.Context, cfg domain.PromptConfiguration) (*domain.PromptConfiguration, error) {
	if f.err != nil {
		return nil, f.err
	}
	cfg.ID = int64(len(f.created) + 1)
	f.created = append(f.created, cfg)
	return &cfg, nil
}

func (f *configsFake) Update(_ context.Context, cfg domain.PromptConfiguration) (*domain.PromptConfiguration, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cfg, nil
}

func (f *configsFake) Delete(context.Context, int64) error { return f.err }

func (f *configsFake) Get(_ context.Context, id int64) (*domain.PromptConfiguration, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.PromptConfiguration{ID: id, Name: "invoices"}, nil
}

func (f *configsFake) List(context.Context) ([]domain.PromptConfiguration, error) {
	return f.created, f.err
}

type historyFake struct {
	records []domain.ProcessingRecord
	got     domain.HistoryFilter
}

func (f *historyFake) List(_ context.Context, filter domain.HistoryFilter) ([]domain.ProcessingRecord, error) {
	f.got = filter
	return f.records, nil
}

type settingsFake struct {
	settings domain.AnalysisSettings
	updated  map[string]string
	err      error
}

func (f *settingsFake) Analysis(context.Context) (domain.AnalysisSettings, error) {
	return f.settings, nil
}

func (f *settingsFake) Update(_ context.Context, values map[string]string) (domain.AnalysisSettings, error) {
	if f.err != nil {
		return domain.AnalysisSettings{}, f.err
	}
	f.updated = values
	return f.settings, nil
}

func (f *settingsFake) ModularDefaults() domain.ModularPromptSet {
	return domain.ModularPromptSet{DocumentDate: "Extract the date."}
}

type previewerFake struct {
	got domain.PromptPreviewRequest
	err error
}

func (f *previewerFake) Preview(_ context.Context, req domain.PromptPreviewRequest) (*domain.PromptPreview, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.PromptPreview{DocumentID: req.DocumentID, Style: "modular", UserPrompt: "prompt"}, nil
}

type pingerFake struct {
	err error
}

func (f pingerFake) Ping(context.Context) error { return f.err }

func newTestDeps() Dependencies {
	return Dependencies{
		Store:     &storeFake{doc: &domain.Document{Title: "Invoice"}},
		Processor: &processorFake{},
		Previewer: &previewerFake{},
		Settings:  &settingsFake{},
		Configs:   &configsFake{},
		History:   &historyFake{},
	}
}

func newTestHandler(t *testing.T, cfg config.Config, deps Dependencies) http.Handler {
	t.Helper()
	rt, err := NewRouter(cfg, deps, nil, nil)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return rt.Handler()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
