package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/core/ports"
	"github.com/resper/paperless-onS/internal/infrastructure/resilience"
)

const (
	defaultModel       = "gpt-4o-mini"
	defaultVisionModel = "gpt-4o"
	textMaxTokens      = 2000
	visionMaxTokens    = 4000
	temperature        = 0.3
	chatEndpoint       = "/chat/completions"
)

type Options struct {
	BaseURL  string
	Model    string
	Timeout  time.Duration
	Executor *resilience.Executor
	Recorder ports.APICallRecorder
	Logger   *slog.Logger
}

// Client is the LanguageModel adapter for OpenAI-compatible chat completions.
type Client struct {
	api      *goopenai.Client
	model    string
	executor *resilience.Executor
	recorder ports.APICallRecorder
	logger   *slog.Logger
}

func New(apiKey string, opts Options) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.BaseURL = strings.TrimRight(base, "/")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:      goopenai.NewClientWithConfig(cfg),
		model:    model,
		executor: opts.Executor,
		recorder: opts.Recorder,
		logger:   logger,
	}
}

func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	chatReq := c.chatRequest(req)
	operation := "chat"
	if req.Image != nil {
		operation = "vision"
	}

	started := time.Now()
	resp, err := resilience.Call(ctx, c.executor, "openai."+operation, func(ctx context.Context) (goopenai.ChatCompletionResponse, error) {
		return c.api.CreateChatCompletion(ctx, chatReq)
	}, classifyOpenAIError)
	c.record(ctx, chatReq, started, err)
	if err != nil {
		return domain.Completion{}, mapOpenAIError("openai "+operation, err)
	}
	if len(resp.Choices) == 0 {
		return domain.Completion{}, domain.WrapError(domain.ErrUpstream, "openai "+operation, fmt.Errorf("response has no choices"))
	}

	c.logger.Debug("openai_completion",
		"model", resp.Model,
		"operation", operation,
		"total_tokens", resp.Usage.TotalTokens,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	model := resp.Model
	if model == "" {
		model = chatReq.Model
	}
	return domain.Completion{
		Text:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Model: model,
		Usage: domain.TokenUsage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
	}, nil
}

// Ping lists the models visible to the configured key.
func (c *Client) Ping(ctx context.Context) error {
	_, err := resilience.Call(ctx, c.executor, "openai.models", func(ctx context.Context) (goopenai.ModelsList, error) {
		return c.api.ListModels(ctx)
	}, classifyOpenAIError)
	if err != nil {
		return mapOpenAIError("openai list_models", err)
	}
	return nil
}

func (c *Client) chatRequest(req domain.CompletionRequest) goopenai.ChatCompletionRequest {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}

	out := goopenai.ChatCompletionRequest{
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: req.System},
		},
	}

	if req.Image != nil {
		out.Model = visionModel(model)
		if out.MaxTokens <= 0 {
			out.MaxTokens = visionMaxTokens
		}
		out.Messages = append(out.Messages, goopenai.ChatCompletionMessage{
			Role: goopenai.ChatMessageRoleUser,
			MultiContent: []goopenai.ChatMessagePart{
				{Type: goopenai.ChatMessagePartTypeText, Text: req.User},
				{
					Type: goopenai.ChatMessagePartTypeImageURL,
					ImageURL: &goopenai.ChatMessageImageURL{
						URL:    dataURL(req.Image),
						Detail: goopenai.ImageURLDetailHigh,
					},
				},
			},
		})
		return out
	}

	out.Model = textModel(model)
	if out.MaxTokens <= 0 {
		out.MaxTokens = textMaxTokens
	}
	out.Messages = append(out.Messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.User,
	})
	if req.JSONMode && supportsJSONMode(out.Model) {
		out.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return out
}

func (c *Client) record(ctx context.Context, req goopenai.ChatCompletionRequest, started time.Time, err error) {
	if c.recorder == nil {
		return
	}
	requestData := map[string]any{
		"model":      req.Model,
		"max_tokens": req.MaxTokens,
		"json_mode":  req.ResponseFormat != nil,
	}
	call := domain.APICall{
		Service:     "openai",
		Endpoint:    chatEndpoint,
		Method:      http.MethodPost,
		StatusCode:  http.StatusOK,
		DurationMS:  time.Since(started).Milliseconds(),
		RequestData: requestData,
	}
	if err != nil {
		call.StatusCode = statusOf(err)
		call.ErrorMessage = err.Error()
	}
	c.recorder.RecordCall(ctx, call)
}

// textModel swaps the retired vision preview for its text sibling.
func textModel(model string) string {
	if model == "gpt-4-vision-preview" {
		return "gpt-4-turbo-preview"
	}
	return model
}

// visionModel returns model when it accepts images, else the vision fallback.
func visionModel(model string) string {
	if strings.Contains(model, "gpt-4o") || model == "gpt-4-turbo-preview" {
		return defaultVisionModel
	}
	if strings.Contains(model, "vision") || strings.Contains(model, "gpt-4-turbo") {
		return model
	}
	return defaultVisionModel
}

func supportsJSONMode(model string) bool {
	return strings.Contains(model, "gpt-4") || strings.Contains(model, "gpt-3.5") || strings.Contains(model, "gpt-5")
}

func dataURL(img *domain.ImageInput) string {
	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
