package domain

import (
	"encoding/json"
	"path"
	"strings"
)

// Document is the read-only snapshot of a document held by the document store.
type Document struct {
	ID               int    `json:"id"`
	Title            string `json:"title"`
	Content          string `json:"content"`
	Tags             []int  `json:"tags"`
	Correspondent    *int   `json:"correspondent"`
	DocumentType     *int   `json:"document_type"`
	StoragePath      *int   `json:"storage_path"`
	Created          string `json:"created,omitempty"`
	Modified         string `json:"modified,omitempty"`
	Added            string `json:"added,omitempty"`
	ArchiveSerial    *int   `json:"archive_serial_number,omitempty"`
	OriginalFileName string `json:"original_file_name,omitempty"`
	ArchivedFileName string `json:"archived_file_name,omitempty"`
}

// Filename returns the best known file name for prompts and downloads.
func (d Document) Filename() string {
	if name := strings.TrimSpace(d.OriginalFileName); name != "" {
		return name
	}
	if name := strings.TrimSpace(d.ArchivedFileName); name != "" {
		return name
	}
	return strings.TrimSpace(d.Title)
}

// DownloadedFile is the binary content of a document.
type DownloadedFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

func (f DownloadedFile) IsPDF() bool {
	if strings.Contains(strings.ToLower(f.ContentType), "pdf") {
		return true
	}
	return strings.EqualFold(path.Ext(f.Filename), ".pdf")
}

func (f DownloadedFile) IsImage() bool {
	if strings.HasPrefix(strings.ToLower(f.ContentType), "image/") {
		return true
	}
	switch strings.ToLower(path.Ext(f.Filename)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	default:
		return false
	}
}

// ImageMimeType returns the mime type used when the file is sent as an image.
func (f DownloadedFile) ImageMimeType() string {
	if strings.HasPrefix(strings.ToLower(f.ContentType), "image/") {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(f.ContentType, ";", 2)[0]))
	}
	switch strings.ToLower(path.Ext(f.Filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

// DocumentFilter narrows a document search on the store.
type DocumentFilter struct {
	TagIDs        []int  `json:"tag_ids,omitempty"`
	Correspondent *int   `json:"correspondent,omitempty"`
	DocumentType  *int   `json:"document_type,omitempty"`
	CreatedAfter  string `json:"created_after,omitempty"`
	CreatedBefore string `json:"created_before,omitempty"`
	Query         string `json:"query,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

// MetadataUpdate is a partial update for a document. Nil pointers are left untouched.
type MetadataUpdate struct {
	Title         *string
	Created       *string
	Correspondent *int
	DocumentType  *int
	StoragePath   *int
	Tags          []int
	SetTags       bool
}

func (u MetadataUpdate) IsEmpty() bool {
	return u.Title == nil && u.Created == nil && u.Correspondent == nil &&
		u.DocumentType == nil && u.StoragePath == nil && !u.SetTags
}

// Fields renders the update as the store's PATCH body.
func (u MetadataUpdate) Fields() map[string]any {
	fields := make(map[string]any)
	if u.Title != nil {
		fields["title"] = *u.Title
	}
	if u.Created != nil {
		fields["created"] = *u.Created
	}
	if u.Correspondent != nil {
		fields["correspondent"] = *u.Correspondent
	}
	if u.DocumentType != nil {
		fields["document_type"] = *u.DocumentType
	}
	if u.StoragePath != nil {
		fields["storage_path"] = *u.StoragePath
	}
	if u.SetTags {
		tags := u.Tags
		if tags == nil {
			tags = []int{}
		}
		fields["tags"] = tags
	}
	return fields
}

func (u MetadataUpdate) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Fields())
}
