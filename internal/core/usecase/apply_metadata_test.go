package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/resper/paperless-onS/internal/core/domain"
)

func TestApplyWritesReconciledUpdate(t *testing.T) {
	store := &storeFake{
		doc: &domain.Document{ID: 3, Tags: []int{1}},
		entities: map[domain.EntityKind][]domain.Entity{
			domain.EntityCorrespondent: {{ID: 11, Name: "ACME"}},
			domain.EntityTag:           tagEntities(),
		},
	}
	history := newHistoryFake()
	uc := NewApplyMetadataUseCase(store, history, nil)

	res, err := uc.Apply(context.Background(), 3, domain.SuggestedMetadata{
		Correspondent: "acme",
		SuggestedTags: []string{"Tax"},
	}, domain.PolicyReuseOnly)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !res.Updated || res.Message != msgMetadataUpdated {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(store.updates) != 1 {
		t.Fatalf("expected one update, got %d", len(store.updates))
	}
	update := store.updates[0]
	if *update.Correspondent != 11 || !reflect.DeepEqual(update.Tags, []int{1, 2}) {
		t.Fatalf("unexpected update: %v", update.Fields())
	}
	if !reflect.DeepEqual(history.markedLatest, []int{3}) {
		t.Fatalf("expected latest history record to be marked, got %v", history.markedLatest)
	}
}

func TestApplyWithNothingToChange(t *testing.T) {
	store := &storeFake{doc: &domain.Document{ID: 3}}
	history := newHistoryFake()
	uc := NewApplyMetadataUseCase(store, history, nil)

	res, err := uc.Apply(context.Background(), 3, domain.SuggestedMetadata{Correspondent: "Nobody"}, domain.PolicyReuseOnly)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Updated || res.Message != msgNoMetadataChanges {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(store.updates) != 0 || len(history.markedLatest) != 0 {
		t.Fatalf("nothing should be written")
	}
	if len(res.Unmatched) != 1 {
		t.Fatalf("expected unmatched correspondent, got %+v", res.Unmatched)
	}
}

func TestApplyCreatesMissingEntitiesWhenRequested(t *testing.T) {
	store := &storeFake{
		doc: &domain.Document{ID: 3, Tags: []int{1, 2}},
		entities: map[domain.EntityKind][]domain.Entity{
			domain.EntityTag: tagEntities(),
		},
	}
	uc := NewApplyMetadataUseCase(store, nil, nil)

	res, err := uc.Apply(context.Background(), 3, domain.SuggestedMetadata{
		Correspondent: "New Co",
		SuggestedTags: []string{"Fresh"},
	}, domain.PolicyCreateMissing)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(res.Created) != 2 || len(res.Unmatched) != 0 {
		t.Fatalf("expected two created entities and no unmatched, got %+v", res)
	}
	update := store.updates[0]
	if update.Correspondent == nil || *update.Correspondent != 101 {
		t.Fatalf("expected created correspondent id, got %v", update.Fields())
	}
	if !reflect.DeepEqual(update.Tags, []int{1, 2, 102}) {
		t.Fatalf("expected current tags plus created tag, got %v", update.Tags)
	}
}

func TestApplyKeepsNameUnmatchedWhenCreateFails(t *testing.T) {
	store := &storeFake{
		doc:       &domain.Document{ID: 3},
		createErr: errors.New("boom"),
	}
	uc := NewApplyMetadataUseCase(store, nil, nil)

	res, err := uc.Apply(context.Background(), 3, domain.SuggestedMetadata{DocumentType: "Memo"}, domain.PolicyCreateMissing)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Updated || len(res.Unmatched) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestApplyPropagatesStoreFailure(t *testing.T) {
	store := &storeFake{
		doc:       &domain.Document{ID: 3},
		updateErr: domain.WrapError(domain.ErrUpstream, "patch document", errors.New("500")),
	}
	uc := NewApplyMetadataUseCase(store, newHistoryFake(), nil)

	_, err := uc.Apply(context.Background(), 3, domain.SuggestedMetadata{Title: "x"}, domain.PolicyReuseOnly)
	if !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestApplyRejectsInvalidID(t *testing.T) {
	uc := NewApplyMetadataUseCase(&storeFake{}, nil, nil)
	if _, err := uc.Apply(context.Background(), 0, domain.SuggestedMetadata{}, domain.PolicyReuseOnly); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
