package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/resper/paperless-onS/internal/core/analysis"
	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/core/ports"
	"github.com/resper/paperless-onS/internal/core/prompting"
)

// Localizer keys and their English fallbacks.
const (
	keyNoStoreText       = "pipeline.no_text_extracted"
	keyOCRTextMissing    = "pipeline.ocr_text_unavailable"
	fallbackNoStoreText  = "No text extracted by Paperless-NGX"
	fallbackOCRTextEmpty = "[Vision API did not return the text separately]"
)

const defaultLockTTL = 5 * time.Minute

// ProcessOptions carries the optional collaborators of the pipeline.
type ProcessOptions struct {
	Configs   ports.PromptConfigurationStore
	Locker    ports.DocumentLocker
	LockTTL   time.Duration
	Observer  ports.ProcessObserver
	Localizer ports.Localizer
	Logger    *slog.Logger
	// CredentialCheck reports missing store or model credentials before any work starts.
	CredentialCheck func() error
}

type ProcessDocumentUseCase struct {
	store    ports.DocumentStore
	model    ports.LanguageModel
	history  ports.ProcessingHistory
	settings ports.SettingsService
	selector *TextSourceSelector
	applier  *ApplyMetadataUseCase
	opts     ProcessOptions
	logger   *slog.Logger
}

func NewProcessDocumentUseCase(
	store ports.DocumentStore,
	model ports.LanguageModel,
	history ports.ProcessingHistory,
	settings ports.SettingsService,
	selector *TextSourceSelector,
	opts ProcessOptions,
) *ProcessDocumentUseCase {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if selector == nil {
		selector = NewTextSourceSelector(nil, nil, logger)
	}
	return &ProcessDocumentUseCase{
		store:    store,
		model:    model,
		history:  history,
		settings: settings,
		selector: selector,
		applier:  NewApplyMetadataUseCase(store, history, logger),
		opts:     opts,
		logger:   logger,
	}
}

// runState is what one pipeline run accumulates between steps.
type runState struct {
	req       domain.ProcessRequest
	mode      domain.TextSourceMode
	settings  domain.AnalysisSettings
	templates prompting.Templates
	doc       *domain.Document
	file      *domain.DownloadedFile
	entities  domain.AvailableEntities
}

// Process runs the pipeline for one document. Every run that gets past
// configuration owns exactly one audit record, finished as completed or
// failed. Step failures come back as a result with Success=false together
// with a *domain.StepError.
func (uc *ProcessDocumentUseCase) Process(ctx context.Context, req domain.ProcessRequest) (*domain.ProcessResult, error) {
	started := time.Now()
	if req.DocumentID <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process document", fmt.Errorf("document id must be positive, got %d", req.DocumentID))
	}

	state, err := uc.prepare(ctx, req)
	if err != nil {
		uc.observeRun(domain.StatusFailed, domain.StepConfiguration, started)
		return &domain.ProcessResult{
			DocumentID: req.DocumentID,
			Step:       domain.StepConfiguration,
			Message:    err.Error(),
		}, &domain.StepError{Step: domain.StepConfiguration, Err: err}
	}

	unlock := uc.lock(ctx, req.DocumentID)
	defer unlock()

	record := &domain.ProcessingRecord{DocumentID: req.DocumentID, Status: domain.StatusProcessing}
	if err := uc.history.Create(ctx, record); err != nil {
		uc.observeRun(domain.StatusFailed, domain.StepPersistResult, started)
		return nil, &domain.StepError{Step: domain.StepPersistResult, Err: fmt.Errorf("create processing record: %w", err)}
	}

	result, step, runErr := uc.run(ctx, record.ID, &state)
	if runErr != nil {
		title := ""
		if state.doc != nil {
			title = state.doc.Title
		}
		if failErr := uc.history.Fail(context.WithoutCancel(ctx), record.ID, title, step, runErr.Error()); failErr != nil {
			uc.logger.Error("history_fail_update_failed", "record_id", record.ID, "error", failErr)
		}
		uc.logger.Warn("document_processing_failed",
			"document_id", req.DocumentID,
			"record_id", record.ID,
			"step", step,
			"error", runErr,
		)
		uc.observeRun(domain.StatusFailed, step, started)
		return &domain.ProcessResult{
			RecordID:      record.ID,
			DocumentID:    req.DocumentID,
			DocumentTitle: title,
			Step:          step,
			Message:       runErr.Error(),
		}, &domain.StepError{Step: step, Err: runErr}
	}

	uc.logger.Info("document_processed",
		"document_id", req.DocumentID,
		"record_id", record.ID,
		"text_source", result.Analysis.TextSource,
		"tokens_used", result.Analysis.TokensUsed,
		"metadata_updated", result.MetadataUpdated,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	uc.observeRun(domain.StatusCompleted, "", started)
	return result, nil
}

// prepare resolves everything the run needs before it may touch the audit trail.
func (uc *ProcessDocumentUseCase) prepare(ctx context.Context, req domain.ProcessRequest) (runState, error) {
	if uc.opts.CredentialCheck != nil {
		if err := uc.opts.CredentialCheck(); err != nil {
			return runState{}, domain.WrapError(domain.ErrNotConfigured, "check credentials", err)
		}
	}

	settings, err := uc.settings.Analysis(ctx)
	if err != nil {
		return runState{}, fmt.Errorf("load analysis settings: %w", err)
	}

	rawMode := string(req.TextSourceMode)
	if rawMode == "" {
		rawMode = string(settings.TextSourceMode)
	}
	mode, ok := domain.ParseTextSourceMode(rawMode)
	if !ok {
		return runState{}, domain.WrapError(domain.ErrInvalidInput, "resolve text source", fmt.Errorf("unknown text source mode %q", rawMode))
	}

	templates := prompting.Templates{
		Legacy:        settings.PromptTemplate,
		System:        settings.PromptSystem,
		Modular:       settings.Modular,
		JSONMode:      settings.UseJSONMode,
		MaxTextLength: settings.MaxTextLength,
	}
	if req.PromptConfigurationID != nil {
		if uc.opts.Configs == nil {
			return runState{}, domain.WrapError(domain.ErrNotConfigured, "load prompt configuration", errors.New("no configuration store"))
		}
		cfg, err := uc.opts.Configs.GetByID(ctx, *req.PromptConfigurationID)
		if err != nil {
			return runState{}, fmt.Errorf("load prompt configuration %d: %w", *req.PromptConfigurationID, err)
		}
		templates.Modular = cfg.Prompts
		templates.JSONMode = cfg.UseJSONMode
	}

	return runState{req: req, mode: mode, settings: settings, templates: templates}, nil
}

func (uc *ProcessDocumentUseCase) run(ctx context.Context, recordID int64, state *runState) (*domain.ProcessResult, string, error) {
	doc, err := uc.store.GetDocument(ctx, state.req.DocumentID)
	if err != nil {
		return nil, domain.StepFetchDocument, fmt.Errorf("fetch document: %w", err)
	}
	state.doc = doc

	file, err := uc.store.DownloadDocument(ctx, state.req.DocumentID)
	if err != nil {
		return nil, domain.StepDownloadDocument, fmt.Errorf("download document: %w", err)
	}
	if strings.TrimSpace(file.Filename) == "" {
		file.Filename = doc.Filename()
	}
	state.file = file

	entities, failed := fetchEntities(ctx, uc.store, allEntityKinds)
	for kind, fetchErr := range failed {
		uc.logger.Warn("entity_fetch_failed", "document_id", doc.ID, "kind", string(kind), "error", fetchErr)
	}
	state.entities = entities

	outcome, err := uc.analyze(ctx, *state)
	if err != nil {
		return nil, domain.StepAnalysis, err
	}
	if uc.opts.Observer != nil {
		uc.opts.Observer.ObserveTokens(outcome.Model, outcome.usage)
	}

	snapshot := domain.AnalysisSnapshot{
		Metadata:     outcome.Suggested,
		FullAnalysis: outcome.FullAnalysis,
		Model:        outcome.Model,
		Style:        outcome.PromptStyle,
	}
	if err := uc.history.Complete(ctx, recordID, doc.Title, outcome.TextSource, outcome.TokensUsed, snapshot); err != nil {
		return nil, domain.StepPersistResult, fmt.Errorf("persist analysis result: %w", err)
	}

	analysisOut := outcome.AnalysisOutcome
	if limit := state.settings.DisplayTextLength; limit > 0 {
		analysisOut.ExtractedText = prompting.Truncate(analysisOut.ExtractedText, limit)
	}
	result := &domain.ProcessResult{
		Success:       true,
		RecordID:      recordID,
		DocumentID:    doc.ID,
		DocumentTitle: doc.Title,
		Current:       currentMetadata(doc, entities),
		Analysis:      &analysisOut,
	}

	if state.req.AutoUpdate {
		uc.autoApply(ctx, recordID, state.req, outcome.Suggested, result)
	}
	return result, "", nil
}

// autoApply writes the suggestion back. A failed write does not fail the
// run; it is reported on the result.
func (uc *ProcessDocumentUseCase) autoApply(ctx context.Context, recordID int64, req domain.ProcessRequest, suggested domain.SuggestedMetadata, result *domain.ProcessResult) {
	if req.ClearExistingTags {
		suggested.ClearExistingTags = true
	}
	policy := req.EntityPolicy
	if policy == "" {
		policy = domain.PolicyReuseOnly
	}

	applied, err := uc.applier.apply(ctx, req.DocumentID, suggested, policy)
	if err != nil {
		uc.logger.Warn("auto_apply_failed",
			"document_id", req.DocumentID,
			"record_id", recordID,
			"step", domain.StepApplyMetadata,
			"error", err,
		)
		result.UpdateMessage = err.Error()
		return
	}
	result.MetadataUpdated = applied.Updated
	result.UpdateMessage = applied.Message
	if !applied.Updated {
		return
	}
	if err := uc.history.MarkMetadataUpdated(ctx, recordID); err != nil {
		uc.logger.Warn("history_mark_updated_failed", "record_id", recordID, "error", err)
	}
}

type analysisRun struct {
	domain.AnalysisOutcome
	usage domain.TokenUsage
}

func (uc *ProcessDocumentUseCase) analyze(ctx context.Context, state runState) (analysisRun, error) {
	pctx := prompting.Context{
		Filename:     state.file.Filename,
		CurrentTitle: state.doc.Title,
		Entities:     state.entities,
	}

	if state.mode == domain.TextSourceAIOCR {
		img, err := uc.selector.VisionImage(ctx, state.file)
		if err == nil {
			return uc.analyzeImage(ctx, state, pctx, img)
		}
		if !state.file.IsPDF() || domain.IsKind(err, domain.ErrInvalidInput) {
			return analysisRun{}, err
		}
		text, localErr := uc.selector.localText(ctx, state.file)
		if localErr != nil {
			return analysisRun{}, err
		}
		uc.logger.Info("vision_render_fallback_to_text", "document_id", state.doc.ID, "error", err)
		pctx.ExtractedText = text
		return uc.analyzeText(ctx, state, pctx, domain.SourcePDFText)
	}

	text := state.doc.Content
	source := domain.SourcePaperlessText
	if strings.TrimSpace(text) == "" {
		if local, err := uc.selector.localText(ctx, state.file); err == nil {
			text = local
			source = domain.SourcePDFText
		} else {
			text = uc.translate(state.req.Language, keyNoStoreText, fallbackNoStoreText)
		}
	}
	pctx.ExtractedText = text
	return uc.analyzeText(ctx, state, pctx, source)
}

func (uc *ProcessDocumentUseCase) analyzeText(ctx context.Context, state runState, pctx prompting.Context, source string) (analysisRun, error) {
	prompt := prompting.Build(state.templates, pctx)
	completion, err := uc.model.Complete(ctx, domain.CompletionRequest{
		System:   prompt.System,
		User:     prompt.User,
		JSONMode: prompt.JSONMode,
		Model:    state.settings.Model,
	})
	if err != nil {
		return analysisRun{}, fmt.Errorf("complete analysis: %w", err)
	}

	decoded := analysis.Decode(completion.Text)
	return analysisRun{
		AnalysisOutcome: domain.AnalysisOutcome{
			ExtractedText:  pctx.ExtractedText,
			FullAnalysis:   completion.Text,
			Suggested:      decoded.Metadata,
			TokensUsed:     completion.Usage.Total,
			TextSource:     source,
			Model:          completion.Model,
			PromptStyle:    prompt.Style.String(),
			ResponseFormat: decoded.Format.String(),
		},
		usage: completion.Usage,
	}, nil
}

func (uc *ProcessDocumentUseCase) analyzeImage(ctx context.Context, state runState, pctx prompting.Context, img *domain.ImageInput) (analysisRun, error) {
	prompt := prompting.BuildVision(state.templates, pctx)
	completion, err := uc.model.Complete(ctx, domain.CompletionRequest{
		System: prompt.System,
		User:   prompt.User,
		Image:  img,
		Model:  state.settings.Model,
	})
	if err != nil {
		return analysisRun{}, fmt.Errorf("complete vision analysis: %w", err)
	}

	ocrText, analysisText, ok := analysis.SplitVisionResponse(completion.Text)
	if !ok || ocrText == "" {
		ocrText = uc.translate(state.req.Language, keyOCRTextMissing, fallbackOCRTextEmpty)
	}
	decoded := analysis.Decode(analysisText)
	return analysisRun{
		AnalysisOutcome: domain.AnalysisOutcome{
			ExtractedText:  ocrText,
			FullAnalysis:   analysisText,
			Suggested:      decoded.Metadata,
			TokensUsed:     completion.Usage.Total,
			TextSource:     domain.SourceVision,
			Model:          completion.Model,
			PromptStyle:    prompt.Style.String(),
			ResponseFormat: decoded.Format.String(),
		},
		usage: completion.Usage,
	}, nil
}

func (uc *ProcessDocumentUseCase) lock(ctx context.Context, documentID int) func() {
	if uc.opts.Locker == nil {
		return func() {}
	}
	unlock, err := uc.opts.Locker.Lock(ctx, documentID, uc.opts.LockTTL)
	if err != nil {
		uc.logger.Warn("document_lock_unavailable", "document_id", documentID, "error", err)
		return func() {}
	}
	return unlock
}

func (uc *ProcessDocumentUseCase) translate(lang, key, fallback string) string {
	if uc.opts.Localizer == nil {
		return fallback
	}
	if text := uc.opts.Localizer.Translate(lang, key); text != "" && text != key {
		return text
	}
	return fallback
}

func (uc *ProcessDocumentUseCase) observeRun(status domain.ProcessingStatus, step string, started time.Time) {
	if uc.opts.Observer != nil {
		uc.opts.Observer.ObserveRun(string(status), step, time.Since(started))
	}
}

func currentMetadata(doc *domain.Document, entities domain.AvailableEntities) *domain.CurrentMetadata {
	tags := make([]string, 0, len(doc.Tags))
	for _, id := range doc.Tags {
		if name := domain.NameOf(entities.Tags, &id); name != "" {
			tags = append(tags, name)
		}
	}
	return &domain.CurrentMetadata{
		Title:         doc.Title,
		Correspondent: domain.NameOf(entities.Correspondents, doc.Correspondent),
		DocumentType:  domain.NameOf(entities.DocumentTypes, doc.DocumentType),
		StoragePath:   domain.NameOf(entities.StoragePaths, doc.StoragePath),
		Tags:          tags,
		Created:       doc.Created,
	}
}
