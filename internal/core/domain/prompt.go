package domain

import (
	"strings"
	"time"
)

// PromptField names one modular instruction slot.
type PromptField string

const (
	FieldDocumentDate    PromptField = "document_date"
	FieldCorrespondent   PromptField = "correspondent"
	FieldDocumentType    PromptField = "document_type"
	FieldStoragePath     PromptField = "storage_path"
	FieldContentKeywords PromptField = "content_keywords"
	FieldSuggestedTitle  PromptField = "suggested_title"
	FieldSuggestedTag    PromptField = "suggested_tag"
)

// ContentFields lists the modular content fields in prompt order.
var ContentFields = []PromptField{
	FieldDocumentDate,
	FieldCorrespondent,
	FieldDocumentType,
	FieldStoragePath,
	FieldContentKeywords,
	FieldSuggestedTitle,
	FieldSuggestedTag,
}

// ModularPromptSet holds per-field instructions. A field is active when its
// text is non-empty after trimming.
type ModularPromptSet struct {
	DocumentDate     string `json:"document_date" yaml:"document_date"`
	Correspondent    string `json:"correspondent" yaml:"correspondent"`
	DocumentType     string `json:"document_type" yaml:"document_type"`
	StoragePath      string `json:"storage_path" yaml:"storage_path"`
	ContentKeywords  string `json:"content_keywords" yaml:"content_keywords"`
	SuggestedTitle   string `json:"suggested_title" yaml:"suggested_title"`
	SuggestedTag     string `json:"suggested_tag" yaml:"suggested_tag"`
	FreeInstructions string `json:"free_instructions" yaml:"free_instructions"`
}

func (s ModularPromptSet) Field(field PromptField) string {
	switch field {
	case FieldDocumentDate:
		return s.DocumentDate
	case FieldCorrespondent:
		return s.Correspondent
	case FieldDocumentType:
		return s.DocumentType
	case FieldStoragePath:
		return s.StoragePath
	case FieldContentKeywords:
		return s.ContentKeywords
	case FieldSuggestedTitle:
		return s.SuggestedTitle
	case FieldSuggestedTag:
		return s.SuggestedTag
	default:
		return ""
	}
}

func (s ModularPromptSet) IsActive(field PromptField) bool {
	return strings.TrimSpace(s.Field(field)) != ""
}

// ActiveFields returns the active content fields in prompt order.
func (s ModularPromptSet) ActiveFields() []PromptField {
	var active []PromptField
	for _, field := range ContentFields {
		if s.IsActive(field) {
			active = append(active, field)
		}
	}
	return active
}

// HasActiveFields reports whether modular style applies. Free instructions alone do not activate it.
func (s ModularPromptSet) HasActiveFields() bool {
	return len(s.ActiveFields()) > 0
}

// PromptConfiguration is a named, persisted modular prompt set.
type PromptConfiguration struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Prompts     ModularPromptSet `json:"prompts"`
	UseJSONMode bool             `json:"use_json_mode"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// AnalysisSettings is the persisted configuration consumed by the pipeline.
type AnalysisSettings struct {
	MaxTextLength     int              `json:"max_text_length"`
	DisplayTextLength int              `json:"display_text_length"`
	UseJSONMode       bool             `json:"use_json_mode"`
	PromptTemplate    string           `json:"prompt_template"`
	PromptSystem      string           `json:"prompt_system"`
	Modular           ModularPromptSet `json:"modular_prompts"`
	Model             string           `json:"openai_model"`
	TextSourceMode    TextSourceMode   `json:"text_source_mode"`
}

// PromptPreviewRequest overrides the stored prompt settings for a dry run.
type PromptPreviewRequest struct {
	DocumentID      int
	PromptTemplate  string
	SystemPrompt    string
	Modular         *ModularPromptSet
	ConfigurationID *int64
	TextSourceMode  TextSourceMode
}

type TextStats struct {
	ExtractedLength int `json:"extracted_length"`
	PreviewLength   int `json:"preview_length"`
	MaxTextLength   int `json:"max_text_length"`
}

// PromptPreview is the rendered prompt pair for a document.
type PromptPreview struct {
	DocumentID    int       `json:"document_id"`
	DocumentTitle string    `json:"document_title"`
	Filename      string    `json:"filename"`
	Style         string    `json:"prompt_style"`
	SystemPrompt  string    `json:"system_prompt"`
	UserPrompt    string    `json:"user_prompt"`
	TextStats     TextStats `json:"text_stats"`
}
