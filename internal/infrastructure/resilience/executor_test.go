package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/resper/paperless-onS/internal/core/domain"
)

func fastConfig(breaker bool) Config {
	return Config{
		RetryMaxAttempts:        3,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         2 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          breaker,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	}
}

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	var retries []int
	exec := NewExecutor(fastConfig(false)).WithHooks(Hooks{
		OnRetry: func(_ string, attempt int) { retries = append(retries, attempt) },
	})

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "paperless.get_document", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{Retryable: errors.Is(err, errTemp), RecordFailure: true}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 || len(retries) != 2 {
		t.Fatalf("expected 3 attempts and 2 retry hooks, got %d/%v", attempts, retries)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastConfig(false))

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	cfg := fastConfig(true)
	cfg.RetryMaxAttempts = 1
	var transitions []string
	exec := NewExecutor(cfg).WithHooks(Hooks{
		OnStateChange: func(_ string, from, to string) { transitions = append(transitions, from+"->"+to) },
	})

	errTemp := errors.New("temporary")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errTemp
		}, classifier)
		if !errors.Is(err, errTemp) {
			t.Fatalf("expected temporary error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) || !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Fatalf("unexpected transitions: %v", transitions)
	}
}

func TestCallReturnsValue(t *testing.T) {
	got, err := Call(context.Background(), NewExecutor(fastConfig(true)), "op", func(context.Context) (int, error) {
		return 7, nil
	}, nil)
	if err != nil || got != 7 {
		t.Fatalf("Call() = %d, %v", got, err)
	}

	got, err = Call[int](context.Background(), nil, "op", func(context.Context) (int, error) {
		return 3, nil
	}, nil)
	if err != nil || got != 3 {
		t.Fatalf("nil executor Call() = %d, %v", got, err)
	}
}

func TestClassifyHTTP(t *testing.T) {
	classify := ClassifyHTTP(nil)

	cases := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{"canceled", context.Canceled, ErrorClassification{}},
		{"bad gateway", &HTTPStatusError{StatusCode: http.StatusBadGateway}, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"not found", fmt.Errorf("wrapped: %w", &HTTPStatusError{StatusCode: http.StatusNotFound}), ErrorClassification{}},
		{"open circuit", gobreaker.ErrOpenState, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"other", errors.New("decode"), ErrorClassification{RecordFailure: true}},
	}
	for _, tc := range cases {
		if got := classify(tc.err); got != tc.want {
			t.Fatalf("%s: got %+v, want %+v", tc.name, got, tc.want)
		}
	}

	custom := ClassifyHTTP(func(error) int { return http.StatusTooManyRequests })
	if !custom(errors.New("sdk error")).Retryable {
		t.Fatalf("status from statusOf should be used")
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	classify := ClassifyHTTP(nil)
	err := WrapTemporaryIfNeeded("openai.chat", &HTTPStatusError{StatusCode: http.StatusServiceUnavailable}, classify)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}
	err = WrapTemporaryIfNeeded("openai.chat", &HTTPStatusError{StatusCode: http.StatusBadRequest}, classify)
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("client errors are not temporary: %v", err)
	}
}
