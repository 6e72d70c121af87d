package analysis

import (
	"reflect"
	"testing"
)

func TestDecodeJSONResponse(t *testing.T) {
	resp := Decode(`{"suggested_tags": ["A","B"], "document_type": "Invoice", "suggested_title": "2024-01-01 - ACME - Invoice", "content_keywords": "Hosting", "document_date": "2024-01-01", "correspondent": "ACME"}`)

	if resp.Format != FormatJSON {
		t.Fatalf("expected json format, got %s", resp.Format)
	}
	meta := resp.Metadata
	if !reflect.DeepEqual(meta.SuggestedTags, []string{"A", "B"}) {
		t.Fatalf("unexpected tags: %#v", meta.SuggestedTags)
	}
	if meta.DocumentType != "Invoice" {
		t.Fatalf("unexpected document type: %q", meta.DocumentType)
	}
	if meta.Title != "2024-01-01 - ACME - Invoice" || meta.Keywords != "Hosting" {
		t.Fatalf("title/keywords not mapped: %+v", meta)
	}
	if meta.DocumentDate != "2024-01-01" || meta.Correspondent != "ACME" {
		t.Fatalf("date/correspondent not mapped: %+v", meta)
	}
}

func TestDecodeJSONSingularTagFallback(t *testing.T) {
	meta := Parse(`{"suggested_tag": "X"}`)
	if !reflect.DeepEqual(meta.SuggestedTags, []string{"X"}) {
		t.Fatalf("unexpected tags: %#v", meta.SuggestedTags)
	}
}

func TestDecodeJSONTagString(t *testing.T) {
	meta := Parse(`{"suggested_tags": "Solo"}`)
	if !reflect.DeepEqual(meta.SuggestedTags, []string{"Solo"}) {
		t.Fatalf("unexpected tags: %#v", meta.SuggestedTags)
	}
}

func TestDecodeJSONWithoutTags(t *testing.T) {
	meta := Parse(`{"document_type": "Letter"}`)
	if meta.SuggestedTags == nil || len(meta.SuggestedTags) != 0 {
		t.Fatalf("expected empty tag list, got %#v", meta.SuggestedTags)
	}
	if meta.HasTags() {
		t.Fatalf("empty suggestion must not touch tags")
	}
}

func TestDecodeJSONInsideCodeFence(t *testing.T) {
	resp := Decode("```json\n{\"correspondent\": \"Bank\"}\n```")
	if resp.Format != FormatJSON || resp.Metadata.Correspondent != "Bank" {
		t.Fatalf("unexpected decode: %+v", resp)
	}
}

func TestDecodeLegacyLines(t *testing.T) {
	resp := Decode("TAGS: [a, b, c]\nTITLE: Foo\n")
	if resp.Format != FormatLines {
		t.Fatalf("expected line format, got %s", resp.Format)
	}
	if !reflect.DeepEqual(resp.Metadata.SuggestedTags, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected tags: %#v", resp.Metadata.SuggestedTags)
	}
	if resp.Metadata.Title != "Foo" {
		t.Fatalf("unexpected title: %q", resp.Metadata.Title)
	}
}

func TestDecodeLegacyAllPrefixes(t *testing.T) {
	meta := Parse("Here you go:\nDATE: 2023-05-01\nCORRESPONDENT: Stadtwerke\nTYPE: Bill\nKEYWORDS: Power, Gas\nTAG: Utilities\nnoise line\n")
	if meta.DocumentDate != "2023-05-01" || meta.Correspondent != "Stadtwerke" || meta.DocumentType != "Bill" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.Keywords != "Power, Gas" {
		t.Fatalf("unexpected keywords: %q", meta.Keywords)
	}
	if !reflect.DeepEqual(meta.SuggestedTags, []string{"Utilities"}) {
		t.Fatalf("unexpected tags: %#v", meta.SuggestedTags)
	}
}

func TestDecodeMalformedJSONDegradesToLines(t *testing.T) {
	resp := Decode(`{"document_type": "Invoice", TITLE: broken`)
	if resp.Format != FormatLines {
		t.Fatalf("expected line fallback, got %s", resp.Format)
	}
	if resp.Metadata.DocumentType != "" || len(resp.Metadata.SuggestedTags) != 0 {
		t.Fatalf("expected empty defaults, got %+v", resp.Metadata)
	}
}

func TestSplitVisionResponse(t *testing.T) {
	ocr, analysisText, ok := SplitVisionResponse("EXTRACTED_TEXT:\nInvoice 42\n\nANALYSIS:\n{\"document_type\": \"Invoice\"}")
	if !ok {
		t.Fatalf("expected split")
	}
	if ocr != "Invoice 42" {
		t.Fatalf("unexpected ocr text: %q", ocr)
	}
	if Parse(analysisText).DocumentType != "Invoice" {
		t.Fatalf("unexpected analysis part: %q", analysisText)
	}

	_, whole, ok := SplitVisionResponse("TYPE: Letter")
	if ok || whole != "TYPE: Letter" {
		t.Fatalf("expected whole response as analysis, got ok=%v analysis=%q", ok, whole)
	}
}
