package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/resper/paperless-onS/internal/core/domain"
)

const (
	mcpServerName    = "paperless-onS"
	mcpServerVersion = "1.0.0"
)

type mcpTools struct {
	deps   Dependencies
	logger *slog.Logger
}

// NewMCPServer exposes the pipeline, the prompt preview and the processing
// history as MCP tools.
func NewMCPServer(deps Dependencies, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	tools := &mcpTools{deps: deps, logger: logger}
	s := server.NewMCPServer(mcpServerName, mcpServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(mcp.NewTool("process_document",
		mcp.WithDescription("Analyse a Paperless-NGX document with the language model and optionally write the suggested metadata back."),
		mcp.WithNumber("document_id", mcp.Required(), mcp.Description("Paperless-NGX document id")),
		mcp.WithBoolean("auto_update", mcp.Description("Write the suggested metadata back to the document")),
		mcp.WithString("text_source_mode", mcp.Enum("paperless", "ai_ocr"), mcp.Description("Use the stored OCR text or let the vision model read the page")),
		mcp.WithNumber("prompt_configuration_id", mcp.Description("Saved prompt configuration to analyse with")),
	), tools.processDocument)

	s.AddTool(mcp.NewTool("render_prompt",
		mcp.WithDescription("Render the system and user prompt a document would be analysed with, without calling the model."),
		mcp.WithNumber("document_id", mcp.Required(), mcp.Description("Paperless-NGX document id")),
		mcp.WithNumber("configuration_id", mcp.Description("Saved prompt configuration to render with")),
	), tools.renderPrompt)

	s.AddTool(mcp.NewTool("processing_history",
		mcp.WithDescription("List recent processing runs, newest first."),
		mcp.WithNumber("document_id", mcp.Description("Only runs of this document")),
		mcp.WithString("status", mcp.Enum("processing", "completed", "failed")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs, default 20")),
	), tools.processingHistory)

	return s
}

func newMCPHandler(deps Dependencies, logger *slog.Logger) http.Handler {
	return server.NewStreamableHTTPServer(NewMCPServer(deps, logger), server.WithStateLess(true))
}

func (t *mcpTools) processDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.deps.Processor == nil {
		return mcp.NewToolResultError("document processing is not configured"), nil
	}
	id, err := req.RequireInt("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawMode := req.GetString("text_source_mode", "")
	if _, ok := domain.ParseTextSourceMode(rawMode); !ok {
		return mcp.NewToolResultError("text_source_mode must be paperless or ai_ocr"), nil
	}
	processReq := domain.ProcessRequest{
		DocumentID:     id,
		AutoUpdate:     req.GetBool("auto_update", false),
		TextSourceMode: requestedMode(rawMode),
	}
	if cfgID := req.GetInt("prompt_configuration_id", 0); cfgID > 0 {
		id64 := int64(cfgID)
		processReq.PromptConfigurationID = &id64
	}

	result, err := t.deps.Processor.Process(ctx, processReq)
	if err != nil && result == nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, encErr := jsonResult(result)
	if encErr != nil {
		return nil, encErr
	}
	out.IsError = err != nil
	return out, nil
}

func (t *mcpTools) renderPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.deps.Previewer == nil {
		return mcp.NewToolResultError("prompt preview is not configured"), nil
	}
	id, err := req.RequireInt("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	previewReq := domain.PromptPreviewRequest{DocumentID: id}
	if cfgID := req.GetInt("configuration_id", 0); cfgID > 0 {
		id64 := int64(cfgID)
		previewReq.ConfigurationID = &id64
	}
	preview, err := t.deps.Previewer.Preview(ctx, previewReq)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(preview)
}

func (t *mcpTools) processingHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.deps.History == nil {
		return mcp.NewToolResultError("processing history is not configured"), nil
	}
	filter := domain.HistoryFilter{
		Status: domain.ProcessingStatus(req.GetString("status", "")),
		Limit:  req.GetInt("limit", 20),
	}
	if id := req.GetInt("document_id", 0); id > 0 {
		filter.DocumentID = &id
	}
	records, err := t.deps.History.List(ctx, filter)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		t.logger.Warn("mcp_history_failed", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(records)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
