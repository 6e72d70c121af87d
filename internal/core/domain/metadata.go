package domain

import "strings"

// SuggestedMetadata is the canonical parser output. Empty strings and a nil
// tag slice mean the field was not suggested.
type SuggestedMetadata struct {
	Title             string   `json:"title,omitempty"`
	DocumentType      string   `json:"document_type,omitempty"`
	DocumentDate      string   `json:"document_date,omitempty"`
	Keywords          string   `json:"keywords,omitempty"`
	Correspondent     string   `json:"correspondent,omitempty"`
	StoragePath       string   `json:"storage_path,omitempty"`
	SuggestedTags     []string `json:"suggested_tags"`
	ClearExistingTags bool     `json:"clear_existing_tags,omitempty"`
}

// HasTags reports whether the tag set should be part of an update.
func (m SuggestedMetadata) HasTags() bool {
	return len(m.SuggestedTags) > 0 || m.ClearExistingTags
}

// Categories returns the entity kinds referenced by the suggestion.
func (m SuggestedMetadata) Categories() []EntityKind {
	var kinds []EntityKind
	if strings.TrimSpace(m.Correspondent) != "" {
		kinds = append(kinds, EntityCorrespondent)
	}
	if strings.TrimSpace(m.DocumentType) != "" {
		kinds = append(kinds, EntityDocumentType)
	}
	if strings.TrimSpace(m.StoragePath) != "" {
		kinds = append(kinds, EntityStoragePath)
	}
	if len(m.SuggestedTags) > 0 {
		kinds = append(kinds, EntityTag)
	}
	return kinds
}

// EntityPolicy decides what happens to suggested names without a matching entity.
type EntityPolicy string

const (
	PolicyReuseOnly     EntityPolicy = "reuse"
	PolicyCreateMissing EntityPolicy = "create"
)

func ParseEntityPolicy(raw string) (EntityPolicy, bool) {
	switch EntityPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyReuseOnly:
		return PolicyReuseOnly, true
	case PolicyCreateMissing:
		return PolicyCreateMissing, true
	default:
		return "", false
	}
}

// UnmatchedName is a suggested name that no store entity matched.
type UnmatchedName struct {
	Kind EntityKind `json:"kind"`
	Name string     `json:"name"`
}

// Resolution is the reconciled update for a document plus what could not be matched.
type Resolution struct {
	DocumentID  int             `json:"document_id"`
	Update      MetadataUpdate  `json:"update"`
	Unmatched   []UnmatchedName `json:"unmatched,omitempty"`
	CurrentTags []int           `json:"-"`
}

// ApplyResult reports the outcome of writing suggested metadata back to the store.
type ApplyResult struct {
	DocumentID int             `json:"document_id"`
	Updated    bool            `json:"updated"`
	Applied    MetadataUpdate  `json:"applied"`
	Unmatched  []UnmatchedName `json:"unmatched,omitempty"`
	Created    []Entity        `json:"created,omitempty"`
	Message    string          `json:"message"`
}
