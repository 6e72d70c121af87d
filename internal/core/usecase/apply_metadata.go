package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/core/ports"
)

const (
	msgMetadataUpdated   = "Document metadata updated successfully"
	msgNoMetadataChanges = "no metadata changes to apply"
)

type ApplyMetadataUseCase struct {
	store      ports.DocumentStore
	history    ports.ProcessingHistory
	reconciler *Reconciler
	logger     *slog.Logger
}

func NewApplyMetadataUseCase(store ports.DocumentStore, history ports.ProcessingHistory, logger *slog.Logger) *ApplyMetadataUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApplyMetadataUseCase{
		store:      store,
		history:    history,
		reconciler: NewReconciler(store, logger),
		logger:     logger,
	}
}

// Apply reconciles the suggestion and writes it to the document. The latest
// history record of the document is flagged when the write succeeds.
func (uc *ApplyMetadataUseCase) Apply(ctx context.Context, documentID int, suggested domain.SuggestedMetadata, policy domain.EntityPolicy) (*domain.ApplyResult, error) {
	if documentID <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "apply metadata", fmt.Errorf("document id must be positive, got %d", documentID))
	}
	result, err := uc.apply(ctx, documentID, suggested, policy)
	if err != nil {
		return nil, err
	}
	if result.Updated && uc.history != nil {
		if err := uc.history.MarkLatestMetadataUpdated(ctx, documentID); err != nil {
			uc.logger.Warn("history_mark_updated_failed", "document_id", documentID, "error", err)
		}
	}
	return result, nil
}

func (uc *ApplyMetadataUseCase) apply(ctx context.Context, documentID int, suggested domain.SuggestedMetadata, policy domain.EntityPolicy) (*domain.ApplyResult, error) {
	resolution, err := uc.reconciler.Reconcile(ctx, documentID, suggested)
	if err != nil {
		return nil, fmt.Errorf("reconcile metadata: %w", err)
	}

	var created []domain.Entity
	if policy == domain.PolicyCreateMissing && len(resolution.Unmatched) > 0 {
		created = uc.createMissing(ctx, &resolution, suggested.ClearExistingTags)
	}

	result := &domain.ApplyResult{
		DocumentID: documentID,
		Applied:    resolution.Update,
		Unmatched:  resolution.Unmatched,
		Created:    created,
	}
	if resolution.Update.IsEmpty() {
		result.Message = msgNoMetadataChanges
		return result, nil
	}

	if _, err := uc.store.UpdateDocument(ctx, documentID, resolution.Update); err != nil {
		return nil, fmt.Errorf("update document metadata: %w", err)
	}
	result.Updated = true
	result.Message = msgMetadataUpdated
	uc.logger.Info("metadata_applied",
		"document_id", documentID,
		"fields", len(resolution.Update.Fields()),
		"unmatched", len(resolution.Unmatched),
		"created", len(created),
	)
	return result, nil
}

// createMissing creates store entities for unmatched names and folds their ids
// into the update. Names that fail to be created stay unmatched.
func (uc *ApplyMetadataUseCase) createMissing(ctx context.Context, res *domain.Resolution, clearTags bool) []domain.Entity {
	var created []domain.Entity
	var still []domain.UnmatchedName
	for _, name := range res.Unmatched {
		entity, err := uc.store.CreateEntity(ctx, name.Kind, name.Name)
		if err != nil {
			uc.logger.Warn("entity_create_failed", "kind", string(name.Kind), "name", name.Name, "error", err)
			still = append(still, name)
			continue
		}
		created = append(created, entity)

		id := entity.ID
		switch name.Kind {
		case domain.EntityCorrespondent:
			res.Update.Correspondent = &id
		case domain.EntityDocumentType:
			res.Update.DocumentType = &id
		case domain.EntityStoragePath:
			res.Update.StoragePath = &id
		case domain.EntityTag:
			if !res.Update.SetTags {
				res.Update.SetTags = true
				if !clearTags {
					res.Update.Tags = append([]int(nil), res.CurrentTags...)
				}
			}
			if !slices.Contains(res.Update.Tags, id) {
				res.Update.Tags = append(res.Update.Tags, id)
			}
		}
	}
	res.Unmatched = still
	return created
}
