// Package prompting builds the system and user prompts sent to the language model.
package prompting

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/resper/paperless-onS/internal/core/domain"
)

// DefaultMaxTextLength bounds the document text inserted into a prompt when no setting is present.
const DefaultMaxTextLength = 8000

const (
	noneAvailable = "None available"
	titleNotSet   = "Not set"
)

// Style is the prompt style chosen for one build. Higher values take precedence.
type Style int

const (
	StyleDefault Style = iota
	StyleLegacy
	StyleModular
)

func (s Style) String() string {
	switch s {
	case StyleModular:
		return "modular"
	case StyleLegacy:
		return "legacy"
	default:
		return "default"
	}
}

// Templates is the prompt configuration in effect for a build.
type Templates struct {
	Legacy        string
	System        string
	Modular       domain.ModularPromptSet
	JSONMode      bool
	MaxTextLength int
}

// Context is the per-document input to a build.
type Context struct {
	Filename      string
	CurrentTitle  string
	ExtractedText string
	Entities      domain.AvailableEntities
}

// Prompt is the rendered prompt pair.
type Prompt struct {
	System   string
	User     string
	Style    Style
	JSONMode bool
	Stats    domain.TextStats
}

// ResolveStyle applies the precedence modular > legacy > default.
func ResolveStyle(t Templates) Style {
	switch {
	case t.Modular.HasActiveFields():
		return StyleModular
	case strings.TrimSpace(t.Legacy) != "":
		return StyleLegacy
	default:
		return StyleDefault
	}
}

// Build renders the prompt for text-based analysis.
func Build(t Templates, c Context) Prompt {
	maxLen := maxTextLength(t.MaxTextLength)
	style := ResolveStyle(t)
	vars := newPlaceholders(c, maxLen)

	var user string
	switch style {
	case StyleModular:
		user = buildModular(t.Modular, c, vars)
	case StyleLegacy:
		user = buildLegacy(t.Legacy, c, vars)
	default:
		user = buildLegacy(DefaultTemplate, c, vars)
	}

	system := systemPrompt(t.System)
	if t.JSONMode {
		system += jsonOnlySuffix
	}

	return Prompt{
		System:   system,
		User:     user,
		Style:    style,
		JSONMode: t.JSONMode,
		Stats:    vars.stats(),
	}
}

// BuildVision renders the prompt for image-based analysis. The model extracts
// the text itself, so no document text is inserted and custom legacy
// templates are not used.
func BuildVision(t Templates, c Context) Prompt {
	maxLen := maxTextLength(t.MaxTextLength)
	c.ExtractedText = ""
	vars := newPlaceholders(c, maxLen)

	style := StyleDefault
	var body string
	if t.Modular.HasActiveFields() {
		style = StyleModular
		body = buildModular(t.Modular, c, vars)
	} else {
		body = documentHeader(c) + "\n\n" + vars.replace(visionTemplate) + "\n\n" + lineFormatTrailer
	}

	return Prompt{
		System: systemPrompt(t.System) + visionSystemSuffix,
		User:   visionUserPrefix + body,
		Style:  style,
		Stats:  vars.stats(),
	}
}

func buildLegacy(template string, c Context, vars placeholders) string {
	showing := "complete"
	if vars.textLength > vars.maxLen {
		showing = fmt.Sprintf("first %d", vars.maxLen)
	}

	var b strings.Builder
	b.WriteString("**Document Information:**\n")
	fmt.Fprintf(&b, "- Filename: %s\n", c.Filename)
	fmt.Fprintf(&b, "- Current Title: %s\n", currentTitle(c.CurrentTitle))
	fmt.Fprintf(&b, "- Text Length: %d characters (showing %s)\n\n", vars.textLength, showing)
	b.WriteString("**Document Text (extracted by Paperless-NGX):**\n")
	b.WriteString(vars.preview)
	b.WriteString("\n\n")
	b.WriteString(vars.replace(template))
	b.WriteString("\n\n")
	b.WriteString(lineFormatTrailer)
	return b.String()
}

var fieldLabels = map[domain.PromptField]string{
	domain.FieldDocumentDate:    "Document Date",
	domain.FieldCorrespondent:   "Correspondent",
	domain.FieldDocumentType:    "Document Type",
	domain.FieldStoragePath:     "Storage Path",
	domain.FieldContentKeywords: "Content Keywords",
	domain.FieldSuggestedTitle:  "Suggested Title",
	domain.FieldSuggestedTag:    "Suggested Tag",
}

func buildModular(set domain.ModularPromptSet, c Context, vars placeholders) string {
	active := set.ActiveFields()
	isActive := make(map[domain.PromptField]bool, len(active))
	for _, field := range active {
		isActive[field] = true
	}

	sections := []string{"Analyze the following document and extract metadata in JSON format."}

	var options []string
	if isActive[domain.FieldCorrespondent] && len(c.Entities.Correspondents) > 0 {
		options = append(options, "- Correspondents: "+joinNames(c.Entities.Correspondents))
	}
	if isActive[domain.FieldDocumentType] && len(c.Entities.DocumentTypes) > 0 {
		options = append(options, "- Document Types: "+joinNames(c.Entities.DocumentTypes))
	}
	if isActive[domain.FieldStoragePath] && len(c.Entities.StoragePaths) > 0 {
		options = append(options, "- Storage Paths: "+joinNames(c.Entities.StoragePaths))
	}
	if isActive[domain.FieldSuggestedTag] && len(c.Entities.Tags) > 0 {
		options = append(options, "- Tags: "+joinNames(c.Entities.Tags))
	}
	if len(options) > 0 {
		sections = append(sections, "\n**Available Options from Paperless-NGX:**", strings.Join(options, "\n"))
	}

	sections = append(sections, fmt.Sprintf(
		"\n**Document Information:**\n- Filename: %s\n- Current Title: %s\n\n**Document Text:**\n%s",
		c.Filename, currentTitle(c.CurrentTitle), vars.preview,
	))

	if len(active) > 0 {
		sections = append(sections, "\n**Instructions for each field:**")
		for _, field := range active {
			sections = append(sections, fmt.Sprintf("\n**%s:**\n%s", fieldLabels[field], vars.replace(set.Field(field))))
		}
	}

	if free := strings.TrimSpace(set.FreeInstructions); free != "" {
		sections = append(sections, "\n**General Instructions:**\n"+vars.replace(free))
	}

	if hint := jsonHint(active); hint != nil {
		sections = append(sections, hint...)
	}
	return strings.Join(sections, "\n")
}

func jsonHint(active []domain.PromptField) []string {
	if len(active) == 0 {
		return nil
	}
	keys := make([]string, 0, len(active))
	for _, field := range active {
		if field == domain.FieldSuggestedTag {
			keys = append(keys, `  "suggested_tags": ["tag1"]`)
			continue
		}
		keys = append(keys, fmt.Sprintf(`  %q: "string"`, string(field)))
	}
	return []string{
		"\nPlease return the answer in JSON format:",
		"{",
		strings.Join(keys, ",\n"),
		"}",
		"\nIMPORTANT: Return ONLY valid JSON, no additional text or explanation.",
	}
}

func documentHeader(c Context) string {
	return fmt.Sprintf("**Document Information:**\n- Filename: %s\n- Current Title: %s", c.Filename, currentTitle(c.CurrentTitle))
}

// PlaceholderNames lists the template placeholders without braces, in documentation order.
var PlaceholderNames = []string{
	"filename",
	"current_title",
	"extracted_text",
	"text_length",
	"max_text_length",
	"available_correspondents",
	"available_document_types",
	"available_storage_paths",
	"available_tags",
}

type placeholders struct {
	replacer   *strings.Replacer
	preview    string
	textLength int
	maxLen     int
}

func newPlaceholders(c Context, maxLen int) placeholders {
	preview := Truncate(c.ExtractedText, maxLen)
	textLength := utf8.RuneCountInString(c.ExtractedText)
	return placeholders{
		replacer: strings.NewReplacer(
			"{filename}", c.Filename,
			"{current_title}", currentTitle(c.CurrentTitle),
			"{extracted_text}", preview,
			"{text_length}", strconv.Itoa(textLength),
			"{max_text_length}", strconv.Itoa(maxLen),
			"{available_correspondents}", joinNames(c.Entities.Correspondents),
			"{available_document_types}", joinNames(c.Entities.DocumentTypes),
			"{available_tags}", joinNames(c.Entities.Tags),
			"{available_storage_paths}", joinNames(c.Entities.StoragePaths),
		),
		preview:    preview,
		textLength: textLength,
		maxLen:     maxLen,
	}
}

// replace substitutes every recognised placeholder in a single pass.
func (p placeholders) replace(text string) string {
	return p.replacer.Replace(text)
}

func (p placeholders) stats() domain.TextStats {
	return domain.TextStats{
		ExtractedLength: p.textLength,
		PreviewLength:   utf8.RuneCountInString(p.preview),
		MaxTextLength:   p.maxLen,
	}
}

// Truncate cuts text to at most limit characters.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}

func joinNames(entities []domain.Entity) string {
	if len(entities) == 0 {
		return noneAvailable
	}
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
	}
	return strings.Join(names, ", ")
}

func currentTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return titleNotSet
	}
	return title
}

func systemPrompt(configured string) string {
	if strings.TrimSpace(configured) == "" {
		return DefaultSystemPrompt
	}
	return configured
}

func maxTextLength(n int) int {
	if n <= 0 {
		return DefaultMaxTextLength
	}
	return n
}
