package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/resper/paperless-onS/internal/core/domain"
)

type storeFake struct {
	mu sync.Mutex

	doc         *domain.Document
	getErr      error
	getCalls    int
	file        *domain.DownloadedFile
	downloadErr error

	entities   map[domain.EntityKind][]domain.Entity
	listErr    map[domain.EntityKind]error
	listCalls  []domain.EntityKind
	createErr  error
	created    []domain.Entity
	nextID     int
	updateErr  error
	updates    []domain.MetadataUpdate
	searchDocs []domain.Document
	searchErr  error
	filters    []domain.DocumentFilter

	// listBarrier holds every ListEntities call until this many are in flight.
	listBarrier int
	inFlight    int
	barrierOpen chan struct{}
}

func (f *storeFake) GetDocument(context.Context, int) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyDoc := *f.doc
	copyDoc.Tags = append([]int(nil), f.doc.Tags...)
	return &copyDoc, nil
}

func (f *storeFake) DownloadDocument(context.Context, int) (*domain.DownloadedFile, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	if f.file == nil {
		return &domain.DownloadedFile{Content: []byte("%PDF"), ContentType: "application/pdf", Filename: "doc.pdf"}, nil
	}
	copyFile := *f.file
	return &copyFile, nil
}

func (f *storeFake) ListEntities(_ context.Context, kind domain.EntityKind) ([]domain.Entity, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, kind)
	var wait chan struct{}
	if f.listBarrier > 0 {
		if f.barrierOpen == nil {
			f.barrierOpen = make(chan struct{})
		}
		f.inFlight++
		if f.inFlight == f.listBarrier {
			close(f.barrierOpen)
		}
		wait = f.barrierOpen
	}
	err, list := f.listErr[kind], f.entities[kind]
	f.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-time.After(time.Second):
			return nil, errors.New("entity lists fetched one after another")
		}
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (f *storeFake) CreateEntity(_ context.Context, kind domain.EntityKind, name string) (domain.Entity, error) {
	if f.createErr != nil {
		return domain.Entity{}, f.createErr
	}
	f.nextID++
	entity := domain.Entity{ID: 100 + f.nextID, Name: name}
	f.created = append(f.created, entity)
	return entity, nil
}

func (f *storeFake) UpdateDocument(_ context.Context, _ int, update domain.MetadataUpdate) (*domain.Document, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, update)
	return f.doc, nil
}

func (f *storeFake) SearchDocuments(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	f.filters = append(f.filters, filter)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchDocs, nil
}

func (f *storeFake) Ping(context.Context) error { return nil }

type modelFake struct {
	completion domain.Completion
	err        error
	requests   []domain.CompletionRequest
}

func (f *modelFake) Complete(_ context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return domain.Completion{}, f.err
	}
	return f.completion, nil
}

type historyFake struct {
	records      map[int64]*domain.ProcessingRecord
	nextID       int64
	createErr    error
	completeErr  error
	completions  int
	failures     int
	markedByID   []int64
	markedLatest []int
}

func newHistoryFake() *historyFake {
	return &historyFake{records: make(map[int64]*domain.ProcessingRecord)}
}

func (f *historyFake) Create(_ context.Context, record *domain.ProcessingRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	record.ID = f.nextID
	stored := *record
	f.records[record.ID] = &stored
	return nil
}

func (f *historyFake) Complete(_ context.Context, id int64, title, textSource string, tokens int, snapshot domain.AnalysisSnapshot) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completions++
	r := f.records[id]
	r.Status = domain.StatusCompleted
	r.DocumentTitle = title
	r.TextSource = textSource
	r.TokensUsed = tokens
	r.Suggested = &snapshot
	return nil
}

func (f *historyFake) Fail(_ context.Context, id int64, title, step, message string) error {
	f.failures++
	r := f.records[id]
	r.Status = domain.StatusFailed
	r.DocumentTitle = title
	r.FailedStep = step
	r.ErrorMessage = message
	return nil
}

func (f *historyFake) MarkMetadataUpdated(_ context.Context, id int64) error {
	f.markedByID = append(f.markedByID, id)
	f.records[id].MetadataUpdated = true
	return nil
}

func (f *historyFake) MarkLatestMetadataUpdated(_ context.Context, documentID int) error {
	f.markedLatest = append(f.markedLatest, documentID)
	return nil
}

func (f *historyFake) GetByID(_ context.Context, id int64) (*domain.ProcessingRecord, error) {
	r, ok := f.records[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return r, nil
}

func (f *historyFake) List(context.Context, domain.HistoryFilter) ([]domain.ProcessingRecord, error) {
	out := make([]domain.ProcessingRecord, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, *r)
	}
	return out, nil
}

type settingsFake struct {
	settings domain.AnalysisSettings
	err      error
}

func (f *settingsFake) Analysis(context.Context) (domain.AnalysisSettings, error) {
	return f.settings, f.err
}

func (f *settingsFake) Update(context.Context, map[string]string) (domain.AnalysisSettings, error) {
	return f.settings, f.err
}

func (f *settingsFake) ModularDefaults() domain.ModularPromptSet { return domain.ModularPromptSet{} }

type settingsStoreFake struct {
	values map[string]string
	setErr error
}

func (f *settingsStoreFake) GetAll(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out, nil
}

func (f *settingsStoreFake) Set(_ context.Context, values map[string]string) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.values == nil {
		f.values = make(map[string]string)
	}
	for k, v := range values {
		f.values[k] = v
	}
	return nil
}

type configStoreFake struct {
	configs map[int64]domain.PromptConfiguration
	created []domain.PromptConfiguration
}

func (f *configStoreFake) Create(_ context.Context, cfg *domain.PromptConfiguration) error {
	cfg.ID = int64(len(f.created) + 1)
	f.created = append(f.created, *cfg)
	return nil
}

func (f *configStoreFake) Update(context.Context, *domain.PromptConfiguration) error { return nil }

func (f *configStoreFake) Delete(context.Context, int64) error { return nil }

func (f *configStoreFake) GetByID(_ context.Context, id int64) (*domain.PromptConfiguration, error) {
	cfg, ok := f.configs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get configuration", errors.New("no such configuration"))
	}
	return &cfg, nil
}

func (f *configStoreFake) List(context.Context) ([]domain.PromptConfiguration, error) {
	return nil, nil
}

type extractorFake struct {
	text  string
	pages int
	err   error
}

func (f *extractorFake) ExtractText(context.Context, []byte) (string, int, error) {
	return f.text, f.pages, f.err
}

type rendererFake struct {
	img   *domain.ImageInput
	err   error
	calls int
}

func (f *rendererFake) RenderFirstPage(context.Context, []byte) (*domain.ImageInput, error) {
	f.calls++
	return f.img, f.err
}

type lockerFake struct {
	locked   []int
	released int
	err      error
}

func (f *lockerFake) Lock(_ context.Context, documentID int, _ time.Duration) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.locked = append(f.locked, documentID)
	return func() { f.released++ }, nil
}

type observerFake struct {
	runs   []string
	tokens int
}

func (f *observerFake) ObserveRun(status, step string, _ time.Duration) {
	f.runs = append(f.runs, status+":"+step)
}

func (f *observerFake) ObserveTokens(_ string, usage domain.TokenUsage) {
	f.tokens += usage.Total
}

type localizerFake map[string]string

func (f localizerFake) Translate(lang, key string) string {
	if v, ok := f[lang+":"+key]; ok {
		return v
	}
	return key
}

type queueFake struct {
	published []domain.ProcessRequest
	failAfter int
	err       error
}

func (f *queueFake) PublishProcessRequest(_ context.Context, req domain.ProcessRequest) error {
	if f.err != nil && len(f.published) >= f.failAfter {
		return f.err
	}
	f.published = append(f.published, req)
	return nil
}

func (f *queueFake) SubscribeProcessRequests(context.Context, func(context.Context, domain.ProcessRequest) error) error {
	return nil
}

func intPtr(v int) *int { return &v }
