package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/resper/paperless-onS/internal/core/domain"
)

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("expected tool content")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	default:
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return ""
}

func TestMCPProcessDocument(t *testing.T) {
	processor := &processorFake{result: &domain.ProcessResult{Success: true, DocumentID: 9}}
	tools := &mcpTools{deps: Dependencies{Processor: processor}, logger: testLogger()}

	res, err := tools.processDocument(context.Background(), callTool("process_document", map[string]any{
		"document_id":             float64(9),
		"auto_update":             true,
		"text_source_mode":        "ai_ocr",
		"prompt_configuration_id": float64(4),
	}))
	if err != nil {
		t.Fatalf("processDocument() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if processor.got.DocumentID != 9 || !processor.got.AutoUpdate || processor.got.TextSourceMode != domain.TextSourceAIOCR {
		t.Fatalf("unexpected request %+v", processor.got)
	}
	if processor.got.PromptConfigurationID == nil || *processor.got.PromptConfigurationID != 4 {
		t.Fatalf("expected configuration id 4, got %v", processor.got.PromptConfigurationID)
	}

	var body domain.ProcessResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &body); err != nil {
		t.Fatalf("decode tool result: %v", err)
	}
	if !body.Success || body.DocumentID != 9 {
		t.Fatalf("unexpected result %+v", body)
	}
}

func TestMCPProcessDocumentErrors(t *testing.T) {
	tools := &mcpTools{deps: Dependencies{Processor: &processorFake{}}, logger: testLogger()}

	res, err := tools.processDocument(context.Background(), callTool("process_document", map[string]any{}))
	if err != nil {
		t.Fatalf("processDocument() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected missing document_id to be a tool error")
	}

	res, _ = tools.processDocument(context.Background(), callTool("process_document", map[string]any{
		"document_id":      float64(1),
		"text_source_mode": "magic",
	}))
	if !res.IsError {
		t.Fatalf("expected unknown mode to be a tool error")
	}

	stepErr := &domain.StepError{Step: domain.StepFetchDocument, Err: domain.ErrDocumentNotFound}
	tools.deps.Processor = &processorFake{
		result: &domain.ProcessResult{DocumentID: 1, Step: domain.StepFetchDocument},
		err:    stepErr,
	}
	res, err = tools.processDocument(context.Background(), callTool("process_document", map[string]any{"document_id": float64(1)}))
	if err != nil {
		t.Fatalf("processDocument() error = %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), domain.StepFetchDocument) {
		t.Fatalf("expected failed result body flagged as error, got %+v", res)
	}
}

func TestMCPRenderPrompt(t *testing.T) {
	previewer := &previewerFake{}
	tools := &mcpTools{deps: Dependencies{Previewer: previewer}, logger: testLogger()}

	res, err := tools.renderPrompt(context.Background(), callTool("render_prompt", map[string]any{
		"document_id":      float64(3),
		"configuration_id": float64(2),
	}))
	if err != nil {
		t.Fatalf("renderPrompt() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if previewer.got.DocumentID != 3 || previewer.got.ConfigurationID == nil || *previewer.got.ConfigurationID != 2 {
		t.Fatalf("unexpected preview request %+v", previewer.got)
	}

	previewer.err = errors.New("boom")
	res, _ = tools.renderPrompt(context.Background(), callTool("render_prompt", map[string]any{"document_id": float64(3)}))
	if !res.IsError {
		t.Fatalf("expected preview failure to be a tool error")
	}
}

func TestMCPProcessingHistoryDefaults(t *testing.T) {
	history := &historyFake{records: []domain.ProcessingRecord{{ID: 1, DocumentID: 5, Status: domain.StatusFailed}}}
	tools := &mcpTools{deps: Dependencies{History: history}, logger: testLogger()}

	res, err := tools.processingHistory(context.Background(), callTool("processing_history", map[string]any{
		"status":      "failed",
		"document_id": float64(5),
	}))
	if err != nil {
		t.Fatalf("processingHistory() error = %v", err)
	}
	if history.got.Limit != 20 || history.got.Status != domain.StatusFailed {
		t.Fatalf("unexpected filter %+v", history.got)
	}
	if history.got.DocumentID == nil || *history.got.DocumentID != 5 {
		t.Fatalf("expected document filter 5, got %v", history.got.DocumentID)
	}
	var records []domain.ProcessingRecord
	if err := json.Unmarshal([]byte(resultText(t, res)), &records); err != nil {
		t.Fatalf("decode tool result: %v", err)
	}
	if len(records) != 1 || records[0].DocumentID != 5 {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestMCPToolsWithoutDependencies(t *testing.T) {
	tools := &mcpTools{logger: testLogger()}
	args := callTool("x", map[string]any{"document_id": float64(1)})

	for name, call := range map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"process_document":   tools.processDocument,
		"render_prompt":      tools.renderPrompt,
		"processing_history": tools.processingHistory,
	} {
		res, err := call(context.Background(), args)
		if err != nil {
			t.Fatalf("%s error = %v", name, err)
		}
		if !res.IsError {
			t.Fatalf("%s: expected not-configured tool error", name)
		}
	}
}
