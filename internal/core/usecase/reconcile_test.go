package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/resper/paperless-onS/internal/core/domain"
)

func tagEntities() []domain.Entity {
	return []domain.Entity{{ID: 1, Name: "Bank"}, {ID: 2, Name: "Tax"}, {ID: 3, Name: "Insurance"}, {ID: 5, Name: "Invoice"}}
}

func TestResolveMatchesTagsCaseInsensitive(t *testing.T) {
	res := Resolve(ResolveInput{
		DocumentID: 7,
		Suggested:  domain.SuggestedMetadata{SuggestedTags: []string{"invoice"}},
		Entities:   domain.AvailableEntities{Tags: tagEntities()},
	})
	if !res.Update.SetTags || !reflect.DeepEqual(res.Update.Tags, []int{5}) {
		t.Fatalf("expected tag 5, got %+v", res.Update)
	}
}

func TestResolveMergesWithCurrentTags(t *testing.T) {
	in := ResolveInput{
		Suggested:   domain.SuggestedMetadata{SuggestedTags: []string{"Insurance", "bank"}},
		CurrentTags: []int{1, 2},
		Entities:    domain.AvailableEntities{Tags: tagEntities()},
	}

	res := Resolve(in)
	if !reflect.DeepEqual(res.Update.Tags, []int{1, 2, 3}) {
		t.Fatalf("expected merged tags [1 2 3], got %v", res.Update.Tags)
	}

	in.Suggested.ClearExistingTags = true
	res = Resolve(in)
	if !reflect.DeepEqual(res.Update.Tags, []int{3, 1}) {
		t.Fatalf("expected replaced tags [3 1], got %v", res.Update.Tags)
	}
}

func TestResolveClearOnlyReplacesWithSuggested(t *testing.T) {
	res := Resolve(ResolveInput{
		Suggested:   domain.SuggestedMetadata{SuggestedTags: []string{"Insurance"}, ClearExistingTags: true},
		CurrentTags: []int{1, 2},
		Entities:    domain.AvailableEntities{Tags: tagEntities()},
	})
	if !reflect.DeepEqual(res.Update.Tags, []int{3}) {
		t.Fatalf("expected [3], got %v", res.Update.Tags)
	}
}

func TestResolveLeavesTagsWhenNothingNewMatched(t *testing.T) {
	res := Resolve(ResolveInput{
		Suggested:   domain.SuggestedMetadata{SuggestedTags: []string{"Tax", "Unknown"}},
		CurrentTags: []int{1, 2},
		Entities:    domain.AvailableEntities{Tags: tagEntities()},
	})
	if res.Update.SetTags {
		t.Fatalf("unchanged tag set must not be part of the update: %+v", res.Update)
	}
	if len(res.Unmatched) != 1 || res.Unmatched[0].Name != "Unknown" {
		t.Fatalf("expected Unknown to be reported, got %+v", res.Unmatched)
	}
}

func TestResolveDropsUnmatchedCorrespondent(t *testing.T) {
	res := Resolve(ResolveInput{
		Suggested: domain.SuggestedMetadata{
			Title:         "2024-01-01 - Nonexistent Co - Letter",
			DocumentDate:  "2024-01-01",
			Correspondent: "Nonexistent Co",
			DocumentType:  "letter",
		},
		Entities: domain.AvailableEntities{
			Correspondents: []domain.Entity{{ID: 1, Name: "ACME"}},
			DocumentTypes:  []domain.Entity{{ID: 4, Name: "Letter"}},
		},
	})

	if _, ok := res.Update.Fields()["correspondent"]; ok {
		t.Fatalf("unmatched correspondent must be absent: %v", res.Update.Fields())
	}
	if res.Update.DocumentType == nil || *res.Update.DocumentType != 4 {
		t.Fatalf("expected document type 4, got %v", res.Update.DocumentType)
	}
	if res.Update.Title == nil || *res.Update.Created != "2024-01-01" {
		t.Fatalf("title/date must pass through: %+v", res.Update)
	}
	want := []domain.UnmatchedName{{Kind: domain.EntityCorrespondent, Name: "Nonexistent Co"}}
	if !reflect.DeepEqual(res.Unmatched, want) {
		t.Fatalf("unexpected unmatched: %+v", res.Unmatched)
	}
}

func TestResolveSkipsUnavailableCategories(t *testing.T) {
	res := Resolve(ResolveInput{
		Suggested:   domain.SuggestedMetadata{SuggestedTags: []string{"Tax"}, ClearExistingTags: true, Correspondent: "ACME"},
		CurrentTags: []int{1},
		Unavailable: map[domain.EntityKind]bool{domain.EntityTag: true, domain.EntityCorrespondent: true},
	})
	if !res.Update.IsEmpty() {
		t.Fatalf("expected empty update, got %v", res.Update.Fields())
	}
	if len(res.Unmatched) != 0 {
		t.Fatalf("unavailable categories are not unmatched: %+v", res.Unmatched)
	}
}

func TestReconcileFetchesOnlyReferencedCategories(t *testing.T) {
	store := &storeFake{
		doc:      &domain.Document{ID: 9, Tags: []int{1}},
		entities: map[domain.EntityKind][]domain.Entity{domain.EntityTag: tagEntities()},
	}
	r := NewReconciler(store, nil)

	res, err := r.Reconcile(context.Background(), 9, domain.SuggestedMetadata{Title: "T", SuggestedTags: []string{"tax"}})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if !reflect.DeepEqual(store.listCalls, []domain.EntityKind{domain.EntityTag}) {
		t.Fatalf("expected only tags to be fetched, got %v", store.listCalls)
	}
	if !reflect.DeepEqual(res.Update.Tags, []int{1, 2}) {
		t.Fatalf("unexpected tags: %v", res.Update.Tags)
	}
}

func TestReconcileFetchesCategoriesConcurrently(t *testing.T) {
	entities := map[domain.EntityKind][]domain.Entity{
		domain.EntityTag:           tagEntities(),
		domain.EntityCorrespondent: {{ID: 4, Name: "ACME"}},
	}
	store := &storeFake{doc: &domain.Document{ID: 9}, entities: entities, listBarrier: 2}
	r := NewReconciler(store, nil)

	res, err := r.Reconcile(context.Background(), 9, domain.SuggestedMetadata{Correspondent: "acme", SuggestedTags: []string{"Tax"}})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(store.listCalls) != 2 {
		t.Fatalf("expected two entity list fetches, got %v", store.listCalls)
	}
	if res.Update.Correspondent == nil || *res.Update.Correspondent != 4 {
		t.Fatalf("expected correspondent 4, got %v", res.Update.Correspondent)
	}
	if !reflect.DeepEqual(res.Update.Tags, []int{2}) {
		t.Fatalf("unexpected tags: %v", res.Update.Tags)
	}
}

func TestReconcileFailsWhenDocumentCannotBeRefetched(t *testing.T) {
	store := &storeFake{getErr: domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New("404"))}
	r := NewReconciler(store, nil)

	_, err := r.Reconcile(context.Background(), 9, domain.SuggestedMetadata{Correspondent: "ACME"})
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(store.listCalls) != 0 {
		t.Fatalf("no entity fetch expected after refetch failure, got %v", store.listCalls)
	}
}
