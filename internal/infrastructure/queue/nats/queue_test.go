package nats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/resper/paperless-onS/internal/core/domain"
)

func TestProcessRequestRoundTripsThroughPayload(t *testing.T) {
	cfg := int64(3)
	payload, err := encodeRequest(domain.ProcessRequest{
		DocumentID:            12,
		AutoUpdate:            true,
		TextSourceMode:        domain.TextSourceAIOCR,
		PromptConfigurationID: &cfg,
	})
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}
	got, err := decodeRequest(payload)
	if err != nil {
		t.Fatalf("decodeRequest() error = %v", err)
	}
	if got.DocumentID != 12 || !got.AutoUpdate || got.TextSourceMode != domain.TextSourceAIOCR || got.PromptConfigurationID == nil || *got.PromptConfigurationID != 3 {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestEncodeRequestRejectsMissingDocument(t *testing.T) {
	if _, err := encodeRequest(domain.ProcessRequest{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestDecodeRequestRejectsBadPayloads(t *testing.T) {
	for _, payload := range []string{"42", `{"auto_update":true}`, "not json"} {
		if _, err := decodeRequest([]byte(payload)); err == nil {
			t.Fatalf("expected error for payload %q", payload)
		}
	}
}

func TestClassifyNATSError(t *testing.T) {
	if c := classifyNATSError(fmt.Errorf("publish: %w", nats.ErrConnectionClosed)); !c.Retryable {
		t.Fatalf("closed connection should be retryable")
	}
	if c := classifyNATSError(context.Canceled); c.Retryable || c.RecordFailure {
		t.Fatalf("cancellation must not be retried or recorded: %+v", c)
	}
	if c := classifyNATSError(errors.New("bad subject")); c.Retryable {
		t.Fatalf("unknown errors are not retryable")
	}
}

func TestDeliverRunsRequestsPickedUpDuringDrain(t *testing.T) {
	q := &Queue{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	payload, err := encodeRequest(domain.ProcessRequest{DocumentID: 31})
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}

	var handled []int
	q.deliver(ctx, func(handlerCtx context.Context, req domain.ProcessRequest) error {
		if err := handlerCtx.Err(); err != nil {
			t.Fatalf("handler context already done: %v", err)
		}
		handled = append(handled, req.DocumentID)
		return nil
	}, payload)

	if len(handled) != 1 || handled[0] != 31 {
		t.Fatalf("expected document 31 to be handled, got %v", handled)
	}
}

func TestDeliverSkipsUndecodablePayload(t *testing.T) {
	q := &Queue{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	called := false
	q.deliver(context.Background(), func(context.Context, domain.ProcessRequest) error {
		called = true
		return nil
	}, []byte("not json"))
	if called {
		t.Fatalf("handler must not run for an undecodable payload")
	}
}
