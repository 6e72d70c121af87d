package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/infrastructure/resilience"
)

type recorderFake struct {
	calls []domain.APICall
}

func (r *recorderFake) RecordCall(_ context.Context, call domain.APICall) {
	r.calls = append(r.calls, call)
}

type chatPayload struct {
	Model          string  `json:"model"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []json.RawMessage `json:"messages"`
}

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "gpt-4o-2024-08-06",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": " {\"title\":\"Invoice\"} "}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
}`

func newTestServer(t *testing.T, captured *chatPayload, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func fastExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
	})
}

func TestCompleteTextUsesJSONModeAndRecordsCall(t *testing.T) {
	var payload chatPayload
	server := newTestServer(t, &payload, http.StatusOK, completionBody)
	defer server.Close()

	recorder := &recorderFake{}
	client := New("sk-test", Options{BaseURL: server.URL + "/v1", Model: "gpt-4o-mini", Recorder: recorder})
	got, err := client.Complete(context.Background(), domain.CompletionRequest{
		System:   "system",
		User:     "analyze",
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got.Text != `{"title":"Invoice"}` || got.Usage.Total != 150 || got.Model != "gpt-4o-2024-08-06" {
		t.Fatalf("unexpected completion: %+v", got)
	}
	if payload.Model != "gpt-4o-mini" || payload.MaxTokens != textMaxTokens || payload.Temperature != temperature {
		t.Fatalf("unexpected request: %+v", payload)
	}
	if payload.ResponseFormat == nil || payload.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json_object response format, got %+v", payload.ResponseFormat)
	}
	if len(recorder.calls) != 1 || recorder.calls[0].Service != "openai" || recorder.calls[0].ErrorMessage != "" {
		t.Fatalf("unexpected recorded calls: %+v", recorder.calls)
	}
}

func TestCompleteSkipsJSONModeForUnsupportedModel(t *testing.T) {
	var payload chatPayload
	server := newTestServer(t, &payload, http.StatusOK, completionBody)
	defer server.Close()

	client := New("sk-test", Options{BaseURL: server.URL + "/v1"})
	_, err := client.Complete(context.Background(), domain.CompletionRequest{
		User:     "analyze",
		JSONMode: true,
		Model:    "llama3",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if payload.Model != "llama3" || payload.ResponseFormat != nil {
		t.Fatalf("unexpected request: %+v", payload)
	}
}

func TestCompleteVisionSendsImagePart(t *testing.T) {
	var payload chatPayload
	server := newTestServer(t, &payload, http.StatusOK, completionBody)
	defer server.Close()

	client := New("sk-test", Options{BaseURL: server.URL + "/v1", Model: "gpt-3.5-turbo"})
	_, err := client.Complete(context.Background(), domain.CompletionRequest{
		System: "system",
		User:   "read this",
		Image:  &domain.ImageInput{MimeType: "image/jpeg", Data: []byte{0xff, 0xd8}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if payload.Model != defaultVisionModel || payload.MaxTokens != visionMaxTokens || payload.ResponseFormat != nil {
		t.Fatalf("unexpected vision request: %+v", payload)
	}
	if len(payload.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(payload.Messages))
	}
	user := string(payload.Messages[1])
	if !strings.Contains(user, "data:image/jpeg;base64,/9g=") || !strings.Contains(user, `"detail":"high"`) {
		t.Fatalf("unexpected user message: %s", user)
	}
}

func TestCompleteMapsErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		kind   error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, domain.ErrTemporary},
		{"bad request", http.StatusBadRequest, domain.ErrUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := newTestServer(t, nil, tc.status, `{"error":{"message":"boom","type":"test"}}`)
			defer server.Close()

			recorder := &recorderFake{}
			client := New("sk-test", Options{BaseURL: server.URL + "/v1", Executor: fastExecutor(), Recorder: recorder})
			_, err := client.Complete(context.Background(), domain.CompletionRequest{User: "x"})
			if !domain.IsKind(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
			if len(recorder.calls) != 1 || recorder.calls[0].StatusCode != tc.status {
				t.Fatalf("unexpected recorded calls: %+v", recorder.calls)
			}
		})
	}
}

func TestVisionModelFallback(t *testing.T) {
	cases := map[string]string{
		"gpt-4o-mini":          "gpt-4o",
		"gpt-4-turbo-preview":  "gpt-4o",
		"gpt-4-turbo":          "gpt-4-turbo",
		"gpt-4-vision-preview": "gpt-4-vision-preview",
		"gpt-3.5-turbo":        "gpt-4o",
	}
	for in, want := range cases {
		if got := visionModel(in); got != want {
			t.Fatalf("visionModel(%q) = %q, want %q", in, got, want)
		}
	}
	if textModel("gpt-4-vision-preview") != "gpt-4-turbo-preview" {
		t.Fatalf("vision preview must map to turbo preview for text")
	}
}
