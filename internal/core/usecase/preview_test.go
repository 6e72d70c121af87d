package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/resper/paperless-onS/internal/core/domain"
)

func TestPreviewCustomTemplateOverridesStoredModular(t *testing.T) {
	store, _, _ := newProcessFixture()
	settings := &settingsFake{settings: domain.AnalysisSettings{
		Modular:       domain.ModularPromptSet{Correspondent: "Who sent it?"},
		MaxTextLength: 10,
	}}
	uc := NewPromptPreviewUseCase(store, settings, nil, nil)

	preview, err := uc.Preview(context.Background(), domain.PromptPreviewRequest{
		DocumentID:     42,
		PromptTemplate: "Known tags: {available_tags}. Text: {extracted_text}",
	})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if preview.Style != "legacy" {
		t.Fatalf("expected legacy style, got %s", preview.Style)
	}
	if !strings.Contains(preview.UserPrompt, "Known tags: Bank, Tax, Insurance, Invoice. Text: Invoice fr") {
		t.Fatalf("unexpected prompt: %s", preview.UserPrompt)
	}
	if preview.TextStats.PreviewLength != 10 || preview.TextStats.MaxTextLength != 10 {
		t.Fatalf("unexpected stats: %+v", preview.TextStats)
	}
}

func TestPreviewModularRequest(t *testing.T) {
	store, _, _ := newProcessFixture()
	uc := NewPromptPreviewUseCase(store, &settingsFake{}, nil, nil)

	preview, err := uc.Preview(context.Background(), domain.PromptPreviewRequest{
		DocumentID: 42,
		Modular:    &domain.ModularPromptSet{DocumentType: "Pick one of {available_document_types}"},
	})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if preview.Style != "modular" || !strings.Contains(preview.UserPrompt, "Pick one of Invoice") {
		t.Fatalf("unexpected preview: %+v", preview)
	}
	if strings.Contains(preview.UserPrompt, `"correspondent"`) {
		t.Fatalf("inactive fields must not appear in the JSON hint")
	}
}

func TestPreviewVisionMode(t *testing.T) {
	store, _, _ := newProcessFixture()
	uc := NewPromptPreviewUseCase(store, &settingsFake{}, nil, nil)

	preview, err := uc.Preview(context.Background(), domain.PromptPreviewRequest{DocumentID: 42, TextSourceMode: domain.TextSourceAIOCR})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if !strings.Contains(preview.SystemPrompt, "EXTRACTED_TEXT:") {
		t.Fatalf("expected vision system prompt, got %s", preview.SystemPrompt)
	}
}
