package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/core/ports"
)

// Reconciler resolves suggested names to store entity ids. It never writes to the store.
type Reconciler struct {
	store  ports.DocumentStore
	logger *slog.Logger
}

func NewReconciler(store ports.DocumentStore, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, logger: logger}
}

// Reconcile refetches the document for its current tags and resolves the
// suggestion against the entity lists it references.
func (r *Reconciler) Reconcile(ctx context.Context, documentID int, suggested domain.SuggestedMetadata) (domain.Resolution, error) {
	doc, err := r.store.GetDocument(ctx, documentID)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("refetch document: %w", err)
	}

	entities, failed := fetchEntities(ctx, r.store, suggested.Categories())
	for kind, fetchErr := range failed {
		r.logger.Warn("reconcile_entity_fetch_failed",
			"document_id", documentID,
			"kind", string(kind),
			"error", fetchErr,
		)
	}

	unavailable := make(map[domain.EntityKind]bool, len(failed))
	for kind := range failed {
		unavailable[kind] = true
	}
	return Resolve(ResolveInput{
		DocumentID:  documentID,
		Suggested:   suggested,
		CurrentTags: doc.Tags,
		Entities:    entities,
		Unavailable: unavailable,
	}), nil
}

// ResolveInput is everything the pure resolution step needs.
type ResolveInput struct {
	DocumentID  int
	Suggested   domain.SuggestedMetadata
	CurrentTags []int
	Entities    domain.AvailableEntities
	// Unavailable marks categories whose entity list could not be fetched.
	// Their fields are left out of the update instead of being treated as unmatched.
	Unavailable map[domain.EntityKind]bool
}

// Resolve maps a suggestion onto an update payload.
func Resolve(in ResolveInput) domain.Resolution {
	s := in.Suggested
	res := domain.Resolution{DocumentID: in.DocumentID, CurrentTags: in.CurrentTags}

	if title := strings.TrimSpace(s.Title); title != "" {
		res.Update.Title = &title
	}
	if created := strings.TrimSpace(s.DocumentDate); created != "" {
		res.Update.Created = &created
	}

	res.Update.Correspondent = resolveOne(&res, in, domain.EntityCorrespondent, s.Correspondent, in.Entities.Correspondents)
	res.Update.DocumentType = resolveOne(&res, in, domain.EntityDocumentType, s.DocumentType, in.Entities.DocumentTypes)
	res.Update.StoragePath = resolveOne(&res, in, domain.EntityStoragePath, s.StoragePath, in.Entities.StoragePaths)

	if s.HasTags() && !in.Unavailable[domain.EntityTag] {
		resolveTags(&res, in)
	}
	return res
}

func resolveOne(res *domain.Resolution, in ResolveInput, kind domain.EntityKind, name string, entities []domain.Entity) *int {
	name = strings.TrimSpace(name)
	if name == "" || in.Unavailable[kind] {
		return nil
	}
	id, ok := domain.NewEntityIndex(entities).Lookup(name)
	if !ok {
		res.Unmatched = append(res.Unmatched, domain.UnmatchedName{Kind: kind, Name: name})
		return nil
	}
	return &id
}

func resolveTags(res *domain.Resolution, in ResolveInput) {
	var tags []int
	if !in.Suggested.ClearExistingTags {
		tags = append(tags, in.CurrentTags...)
	}
	base := len(tags)

	index := domain.NewEntityIndex(in.Entities.Tags)
	for _, name := range in.Suggested.SuggestedTags {
		id, ok := index.Lookup(name)
		if !ok {
			if strings.TrimSpace(name) != "" {
				res.Unmatched = append(res.Unmatched, domain.UnmatchedName{Kind: domain.EntityTag, Name: strings.TrimSpace(name)})
			}
			continue
		}
		if !slices.Contains(tags, id) {
			tags = append(tags, id)
		}
	}

	if in.Suggested.ClearExistingTags || len(tags) > base {
		if tags == nil {
			tags = []int{}
		}
		res.Update.Tags = tags
		res.Update.SetTags = true
	}
}
