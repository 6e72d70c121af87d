package domain

import (
	"strings"
	"time"
)

// TextSourceMode selects where the analysed text comes from.
type TextSourceMode string

const (
	TextSourcePaperless TextSourceMode = "paperless"
	TextSourceAIOCR     TextSourceMode = "ai_ocr"
)

func ParseTextSourceMode(raw string) (TextSourceMode, bool) {
	switch TextSourceMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", TextSourcePaperless:
		return TextSourcePaperless, true
	case TextSourceAIOCR:
		return TextSourceAIOCR, true
	default:
		return "", false
	}
}

// Text source labels recorded on results.
const (
	SourcePaperlessText = "paperless_ocr"
	SourcePDFText       = "pdf_text"
	SourceVision        = "vision_api"
)

// Pipeline step names reported on failure.
const (
	StepFetchDocument    = "fetch_document"
	StepDownloadDocument = "download_document"
	StepAnalysis         = "openai_analysis"
	StepPersistResult    = "persist_result"
	StepApplyMetadata    = "apply_metadata"
	StepConfiguration    = "configuration"
)

type ProcessingStatus string

const (
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ProcessingRecord is the audit entry of one pipeline run.
type ProcessingRecord struct {
	ID              int64             `json:"id"`
	DocumentID      int               `json:"document_id"`
	DocumentTitle   string            `json:"document_title"`
	Status          ProcessingStatus  `json:"status"`
	Suggested       *AnalysisSnapshot `json:"suggested_metadata,omitempty"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	FailedStep      string            `json:"failed_step,omitempty"`
	TextSource      string            `json:"text_source,omitempty"`
	TokensUsed      int               `json:"tokens_used"`
	MetadataUpdated bool              `json:"metadata_updated"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// AnalysisSnapshot is what the audit trail keeps of a model response.
type AnalysisSnapshot struct {
	Metadata     SuggestedMetadata `json:"metadata"`
	FullAnalysis string            `json:"full_analysis"`
	Model        string            `json:"model,omitempty"`
	Style        string            `json:"prompt_style,omitempty"`
}

// HistoryFilter pages through processing records.
type HistoryFilter struct {
	DocumentID *int
	Status     ProcessingStatus
	Limit      int
	Offset     int
}

// ProcessRequest asks the pipeline to analyse one document.
type ProcessRequest struct {
	DocumentID            int            `json:"document_id"`
	AutoUpdate            bool           `json:"auto_update"`
	TextSourceMode        TextSourceMode `json:"text_source_mode,omitempty"`
	PromptConfigurationID *int64         `json:"prompt_configuration_id,omitempty"`
	EntityPolicy          EntityPolicy   `json:"entity_policy,omitempty"`
	ClearExistingTags     bool           `json:"clear_existing_tags,omitempty"`
	Language              string         `json:"language,omitempty"`
	EnqueuedAt            time.Time      `json:"enqueued_at,omitempty"`
}

// AnalysisOutcome is the analysis section of a pipeline result.
type AnalysisOutcome struct {
	ExtractedText  string            `json:"extracted_text"`
	FullAnalysis   string            `json:"full_analysis"`
	Suggested      SuggestedMetadata `json:"suggested_metadata"`
	TokensUsed     int               `json:"tokens_used"`
	TextSource     string            `json:"text_source"`
	Model          string            `json:"model,omitempty"`
	PromptStyle    string            `json:"prompt_style,omitempty"`
	ResponseFormat string            `json:"response_format,omitempty"`
}

// CurrentMetadata shows the document's metadata with entity names resolved.
type CurrentMetadata struct {
	Title         string   `json:"title"`
	Correspondent string   `json:"correspondent,omitempty"`
	DocumentType  string   `json:"document_type,omitempty"`
	StoragePath   string   `json:"storage_path,omitempty"`
	Tags          []string `json:"tags"`
	Created       string   `json:"created,omitempty"`
}

// ProcessResult is the structured report of a pipeline run.
type ProcessResult struct {
	Success         bool             `json:"success"`
	RecordID        int64            `json:"record_id,omitempty"`
	DocumentID      int              `json:"document_id"`
	DocumentTitle   string           `json:"document_title,omitempty"`
	Current         *CurrentMetadata `json:"current_metadata,omitempty"`
	Analysis        *AnalysisOutcome `json:"analysis,omitempty"`
	MetadataUpdated bool             `json:"metadata_updated"`
	UpdateMessage   string           `json:"update_message,omitempty"`
	Step            string           `json:"step,omitempty"`
	Message         string           `json:"message,omitempty"`
}

// ExtractionResult reports a local text extraction attempt.
type ExtractionResult struct {
	Success bool   `json:"success"`
	Text    string `json:"text,omitempty"`
	Pages   int    `json:"pages,omitempty"`
	Method  string `json:"method"`
	Message string `json:"message,omitempty"`
}
