package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/core/ports"
)

const entityFetchConcurrency = 4

var allEntityKinds = []domain.EntityKind{
	domain.EntityCorrespondent,
	domain.EntityDocumentType,
	domain.EntityTag,
	domain.EntityStoragePath,
}

// fetchEntities loads the requested entity lists concurrently. Each fetch
// writes only its own slot; failures are reported per kind and leave the
// corresponding list empty.
func fetchEntities(ctx context.Context, store ports.DocumentStore, kinds []domain.EntityKind) (domain.AvailableEntities, map[domain.EntityKind]error) {
	results := make([][]domain.Entity, len(kinds))
	errs := make([]error, len(kinds))

	var g errgroup.Group
	g.SetLimit(entityFetchConcurrency)
	for i, kind := range kinds {
		g.Go(func() error {
			results[i], errs[i] = store.ListEntities(ctx, kind)
			return nil
		})
	}
	_ = g.Wait()

	var out domain.AvailableEntities
	failed := make(map[domain.EntityKind]error)
	for i, kind := range kinds {
		if errs[i] != nil {
			failed[kind] = errs[i]
			continue
		}
		switch kind {
		case domain.EntityCorrespondent:
			out.Correspondents = results[i]
		case domain.EntityDocumentType:
			out.DocumentTypes = results[i]
		case domain.EntityTag:
			out.Tags = results[i]
		case domain.EntityStoragePath:
			out.StoragePaths = results[i]
		}
	}
	return out, failed
}
