package domain

import "strings"

type EntityKind string

const (
	EntityCorrespondent EntityKind = "correspondent"
	EntityDocumentType  EntityKind = "document_type"
	EntityTag           EntityKind = "tag"
	EntityStoragePath   EntityKind = "storage_path"
)

func (k EntityKind) Valid() bool {
	switch k {
	case EntityCorrespondent, EntityDocumentType, EntityTag, EntityStoragePath:
		return true
	default:
		return false
	}
}

// Entity is a correspondent, document type, tag or storage path owned by the store.
type Entity struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count,omitempty"`
}

// AvailableEntities is the per-run snapshot of store entities offered to the model.
type AvailableEntities struct {
	Correspondents []Entity `json:"correspondents"`
	DocumentTypes  []Entity `json:"document_types"`
	Tags           []Entity `json:"tags"`
	StoragePaths   []Entity `json:"storage_paths"`
}

// EntityIndex maps lower-cased names to ids. The first entity wins on duplicate names.
type EntityIndex map[string]int

func NewEntityIndex(entities []Entity) EntityIndex {
	index := make(EntityIndex, len(entities))
	for _, e := range entities {
		key := normalizeEntityName(e.Name)
		if key == "" {
			continue
		}
		if _, exists := index[key]; !exists {
			index[key] = e.ID
		}
	}
	return index
}

// Lookup matches name case-insensitively after trimming surrounding whitespace.
func (idx EntityIndex) Lookup(name string) (int, bool) {
	key := normalizeEntityName(name)
	if key == "" {
		return 0, false
	}
	id, ok := idx[key]
	return id, ok
}

// NameOf returns the name of the entity with id, or "" when unknown.
func NameOf(entities []Entity, id *int) string {
	if id == nil {
		return ""
	}
	for _, e := range entities {
		if e.ID == *id {
			return e.Name
		}
	}
	return ""
}

func normalizeEntityName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
