package domain

import "time"

// ImageInput is a raster image attached to a completion request.
type ImageInput struct {
	MimeType string
	Data     []byte
}

// CompletionRequest is one chat completion call against the language model.
type CompletionRequest struct {
	System    string
	User      string
	Image     *ImageInput
	JSONMode  bool
	MaxTokens int
	Model     string
}

type TokenUsage struct {
	Prompt     int `json:"prompt_tokens"`
	Completion int `json:"completion_tokens"`
	Total      int `json:"total_tokens"`
}

type Completion struct {
	Text  string     `json:"text"`
	Model string     `json:"model"`
	Usage TokenUsage `json:"usage"`
}

// APICall is one outbound call recorded in the api log.
type APICall struct {
	ID           int64     `json:"id"`
	Service      string    `json:"service"`
	Endpoint     string    `json:"endpoint"`
	Method       string    `json:"method"`
	StatusCode   int       `json:"status_code,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	ErrorMessage string    `json:"error_message,omitempty"`
	RequestData  any       `json:"request_data,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
