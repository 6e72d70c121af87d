// Package analysis turns raw model responses into suggested metadata.
package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/resper/paperless-onS/internal/core/domain"
)

// Format identifies which response shape was decoded.
type Format int

const (
	FormatLines Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "lines"
}

// Response is a decoded model response. Exactly one shape applies, named by Format.
type Response struct {
	Format   Format
	Metadata domain.SuggestedMetadata
}

// Parse decodes text and returns the suggested metadata.
func Parse(text string) domain.SuggestedMetadata {
	return Decode(text).Metadata
}

// Decode tries the structured JSON shape first and falls back to the
// line-oriented format. It never fails: unknown content yields empty fields.
func Decode(text string) Response {
	if fields, ok := decodeJSONObject(text); ok {
		return Response{Format: FormatJSON, Metadata: fromJSON(fields)}
	}
	return Response{Format: FormatLines, Metadata: fromLines(text)}
}

func decodeJSONObject(text string) (map[string]any, bool) {
	candidate := stripCodeFence(strings.TrimSpace(text))
	if !strings.HasPrefix(candidate, "{") {
		return nil, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return nil, false
	}
	return fields, fields != nil
}

// stripCodeFence removes a surrounding Markdown code fence such as ```json ... ```.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

func fromJSON(fields map[string]any) domain.SuggestedMetadata {
	meta := domain.SuggestedMetadata{
		Title:         stringField(fields, "suggested_title"),
		DocumentType:  stringField(fields, "document_type"),
		DocumentDate:  stringField(fields, "document_date"),
		Keywords:      stringField(fields, "content_keywords"),
		Correspondent: stringField(fields, "correspondent"),
		StoragePath:   stringField(fields, "storage_path"),
		SuggestedTags: tagsField(fields),
	}
	if clear, ok := fields["clear_existing_tags"].(bool); ok {
		meta.ClearExistingTags = clear
	}
	return meta
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprint(v))
	case []any:
		// Models sometimes answer keywords as a list.
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

func tagsField(fields map[string]any) []string {
	switch v := fields["suggested_tags"].(type) {
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
		return []string{}
	}

	if tag := stringField(fields, "suggested_tag"); tag != "" {
		return []string{tag}
	}
	return []string{}
}

func fromLines(text string) domain.SuggestedMetadata {
	meta := domain.SuggestedMetadata{SuggestedTags: []string{}}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if value, ok := strings.CutPrefix(line, "DATE:"); ok {
			meta.DocumentDate = strings.TrimSpace(value)
		} else if value, ok := strings.CutPrefix(line, "CORRESPONDENT:"); ok {
			meta.Correspondent = strings.TrimSpace(value)
		} else if value, ok := strings.CutPrefix(line, "TYPE:"); ok {
			meta.DocumentType = strings.TrimSpace(value)
		} else if value, ok := strings.CutPrefix(line, "KEYWORDS:"); ok {
			meta.Keywords = strings.TrimSpace(value)
		} else if value, ok := strings.CutPrefix(line, "TITLE:"); ok {
			meta.Title = strings.TrimSpace(value)
		} else if value, ok := strings.CutPrefix(line, "STORAGE_PATH:"); ok {
			meta.StoragePath = strings.TrimSpace(value)
		} else if value, ok := strings.CutPrefix(line, "TAGS:"); ok {
			meta.SuggestedTags = splitTagList(value)
		} else if value, ok := strings.CutPrefix(line, "TAG:"); ok {
			if tag := strings.TrimSpace(value); tag != "" {
				meta.SuggestedTags = []string{tag}
			}
		}
	}
	return meta
}

func splitTagList(value string) []string {
	value = strings.Trim(strings.TrimSpace(value), "[]")
	tags := []string{}
	for _, part := range strings.Split(value, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// SplitVisionResponse separates the OCR text from the analysis in a two-part
// vision response. ok is false when the separators are missing, in which case
// analysis is the whole response.
func SplitVisionResponse(text string) (ocrText, analysisText string, ok bool) {
	if !strings.Contains(text, "EXTRACTED_TEXT:") || !strings.Contains(text, "ANALYSIS:") {
		return "", strings.TrimSpace(text), false
	}
	before, after, _ := strings.Cut(text, "ANALYSIS:")
	ocrText = strings.TrimSpace(strings.Replace(before, "EXTRACTED_TEXT:", "", 1))
	return ocrText, strings.TrimSpace(after), true
}
