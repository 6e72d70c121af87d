package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/resper/paperless-onS/internal/core/domain"
)

func TestEnqueueStampsRequest(t *testing.T) {
	queue := &queueFake{}
	uc := NewProcessSchedulerUseCase(&storeFake{}, queue)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return fixed }

	if err := uc.Enqueue(context.Background(), domain.ProcessRequest{DocumentID: 4, AutoUpdate: true}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if len(queue.published) != 1 || !queue.published[0].EnqueuedAt.Equal(fixed) {
		t.Fatalf("unexpected published requests: %+v", queue.published)
	}
	if err := uc.Enqueue(context.Background(), domain.ProcessRequest{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestEnqueueByTagPublishesEveryDocument(t *testing.T) {
	store := &storeFake{searchDocs: []domain.Document{{ID: 1}, {ID: 2}, {ID: 3}}}
	queue := &queueFake{}
	uc := NewProcessSchedulerUseCase(store, queue)

	n, err := uc.EnqueueByTag(context.Background(), 8, domain.ProcessRequest{TextSourceMode: domain.TextSourceAIOCR})
	if err != nil {
		t.Fatalf("EnqueueByTag() error = %v", err)
	}
	if n != 3 || len(queue.published) != 3 {
		t.Fatalf("expected 3 published, got %d", n)
	}
	if queue.published[2].DocumentID != 3 || queue.published[2].TextSourceMode != domain.TextSourceAIOCR {
		t.Fatalf("template not applied: %+v", queue.published[2])
	}
	if len(store.filters) != 1 || store.filters[0].TagIDs[0] != 8 {
		t.Fatalf("unexpected filter: %+v", store.filters)
	}
}

func TestEnqueueByTagReportsPartialProgress(t *testing.T) {
	store := &storeFake{searchDocs: []domain.Document{{ID: 1}, {ID: 2}, {ID: 3}}}
	queue := &queueFake{err: errors.New("nats down"), failAfter: 1}
	uc := NewProcessSchedulerUseCase(store, queue)

	n, err := uc.EnqueueByTag(context.Background(), 8, domain.ProcessRequest{})
	if err == nil || n != 1 {
		t.Fatalf("expected failure after one publish, got n=%d err=%v", n, err)
	}
}
