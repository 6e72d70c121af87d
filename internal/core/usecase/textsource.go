package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/core/ports"
)

// minExtractedChars is the number of non-whitespace characters a local
// extraction needs before it counts as a text layer.
const minExtractedChars = 50

const MethodTextExtraction = "text_extraction"

var errNoTextLayer = errors.New("no usable text layer")

// TextSourceSelector decides how a downloaded file turns into analysable input.
type TextSourceSelector struct {
	extractor ports.PDFTextExtractor
	renderer  ports.PageRenderer
	logger    *slog.Logger
}

func NewTextSourceSelector(extractor ports.PDFTextExtractor, renderer ports.PageRenderer, logger *slog.Logger) *TextSourceSelector {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextSourceSelector{extractor: extractor, renderer: renderer, logger: logger}
}

// ExtractText runs the local text extraction. Only PDFs with a substantial
// text layer succeed; failures are reported in the result, not as errors.
func (s *TextSourceSelector) ExtractText(ctx context.Context, file *domain.DownloadedFile) domain.ExtractionResult {
	result := domain.ExtractionResult{Method: MethodTextExtraction}
	if file == nil || !file.IsPDF() {
		result.Message = "Local text extraction is only available for PDF files"
		return result
	}
	if s.extractor == nil {
		result.Message = "PDF text extraction is not available"
		return result
	}

	text, pages, err := s.extractor.ExtractText(ctx, file.Content)
	if err != nil {
		result.Message = fmt.Sprintf("Error extracting text: %v", err)
		return result
	}
	result.Pages = pages
	if countNonSpace(text) <= minExtractedChars {
		result.Message = "PDF has no usable text layer"
		return result
	}
	result.Success = true
	result.Text = text
	return result
}

// localText returns the extracted text or errNoTextLayer.
func (s *TextSourceSelector) localText(ctx context.Context, file *domain.DownloadedFile) (string, error) {
	res := s.ExtractText(ctx, file)
	if !res.Success {
		s.logger.Debug("local_text_extraction_failed", "filename", file.Filename, "reason", res.Message)
		return "", errNoTextLayer
	}
	return res.Text, nil
}

// VisionImage returns the image to send to the model. Images pass through,
// PDFs are rendered from their first page, everything else is invalid input.
func (s *TextSourceSelector) VisionImage(ctx context.Context, file *domain.DownloadedFile) (*domain.ImageInput, error) {
	switch {
	case file.IsImage():
		return &domain.ImageInput{MimeType: file.ImageMimeType(), Data: file.Content}, nil
	case file.IsPDF():
		if s.renderer == nil {
			return nil, domain.WrapError(domain.ErrNotConfigured, "render first page", errors.New("no page renderer"))
		}
		img, err := s.renderer.RenderFirstPage(ctx, file.Content)
		if err != nil {
			return nil, fmt.Errorf("render first page: %w", err)
		}
		return img, nil
	default:
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"select vision input",
			fmt.Errorf("vision analysis does not support this file type: %s", file.ContentType),
		)
	}
}

func countNonSpace(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// TextExtractionUseCase exposes the local extraction for a stored document.
type TextExtractionUseCase struct {
	store    ports.DocumentStore
	selector *TextSourceSelector
}

func NewTextExtractionUseCase(store ports.DocumentStore, selector *TextSourceSelector) *TextExtractionUseCase {
	return &TextExtractionUseCase{store: store, selector: selector}
}

func (uc *TextExtractionUseCase) ExtractText(ctx context.Context, documentID int) (*domain.ExtractionResult, error) {
	if documentID <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("document id must be positive, got %d", documentID))
	}
	file, err := uc.store.DownloadDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("download document: %w", err)
	}
	result := uc.selector.ExtractText(ctx, file)
	result.Text = strings.TrimSpace(result.Text)
	return &result, nil
}
