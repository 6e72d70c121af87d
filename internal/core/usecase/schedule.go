package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/core/ports"
)

// ProcessSchedulerUseCase hands processing requests to the worker queue.
type ProcessSchedulerUseCase struct {
	store ports.DocumentStore
	queue ports.ProcessQueue
	now   func() time.Time
}

func NewProcessSchedulerUseCase(store ports.DocumentStore, queue ports.ProcessQueue) *ProcessSchedulerUseCase {
	return &ProcessSchedulerUseCase{store: store, queue: queue, now: time.Now}
}

func (uc *ProcessSchedulerUseCase) Enqueue(ctx context.Context, req domain.ProcessRequest) error {
	if req.DocumentID <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "enqueue processing", fmt.Errorf("document id must be positive, got %d", req.DocumentID))
	}
	if _, ok := domain.ParseTextSourceMode(string(req.TextSourceMode)); !ok {
		return domain.WrapError(domain.ErrInvalidInput, "enqueue processing", fmt.Errorf("unknown text source mode %q", req.TextSourceMode))
	}
	req.EnqueuedAt = uc.now().UTC()
	if err := uc.queue.PublishProcessRequest(ctx, req); err != nil {
		return fmt.Errorf("publish process request: %w", err)
	}
	return nil
}

// EnqueueByTag enqueues every document carrying tagID, using template for the
// request options. It returns how many requests were published before any error.
func (uc *ProcessSchedulerUseCase) EnqueueByTag(ctx context.Context, tagID int, template domain.ProcessRequest) (int, error) {
	if tagID <= 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "enqueue by tag", fmt.Errorf("tag id must be positive, got %d", tagID))
	}
	docs, err := uc.store.SearchDocuments(ctx, domain.DocumentFilter{TagIDs: []int{tagID}})
	if err != nil {
		return 0, fmt.Errorf("search documents by tag: %w", err)
	}

	published := 0
	for _, doc := range docs {
		req := template
		req.DocumentID = doc.ID
		if err := uc.Enqueue(ctx, req); err != nil {
			return published, fmt.Errorf("enqueue document %d: %w", doc.ID, err)
		}
		published++
	}
	return published, nil
}
