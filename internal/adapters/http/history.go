package httpadapter

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/resper/paperless-onS/internal/core/domain"
)

const (
	historySheet      = "History"
	exportRowsDefault = 1000
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type historyResponse struct {
	Success bool                      `json:"success"`
	Count   int                       `json:"count"`
	History []domain.ProcessingRecord `json:"history"`
}

func (rt *Router) listHistory(w http.ResponseWriter, r *http.Request) {
	filter, err := historyFilter(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeHistory(w, r, filter)
}

func (rt *Router) documentHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID[int](r, "document_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	filter, err := historyFilter(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	filter.DocumentID = &id
	rt.writeHistory(w, r, filter)
}

func (rt *Router) writeHistory(w http.ResponseWriter, r *http.Request, filter domain.HistoryFilter) {
	records, err := rt.deps.History.List(r.Context(), filter)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Success: true, Count: len(records), History: records})
}

func (rt *Router) exportHistory(w http.ResponseWriter, r *http.Request) {
	filter, err := historyFilter(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if filter.Limit <= 0 {
		filter.Limit = exportRowsDefault
	}
	records, err := rt.deps.History.List(r.Context(), filter)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	book, err := historyWorkbook(records)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer func() {
		if err := book.Close(); err != nil {
			rt.logger.Warn("history_export_close_failed", "error", err)
		}
	}()

	filename := fmt.Sprintf("processing-history-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if err := book.Write(w); err != nil {
		rt.logger.Error("history_export_write_failed", "error", err)
	}
}

var historyColumns = []string{
	"ID", "Document", "Title", "Status", "Text source", "Tokens",
	"Metadata updated", "Failed step", "Error", "Suggested title",
	"Correspondent", "Document type", "Tags", "Created", "Processed",
}

// historyWorkbook renders records into a single-sheet workbook.
func historyWorkbook(records []domain.ProcessingRecord) (*excelize.File, error) {
	book := excelize.NewFile()
	if err := book.SetSheetName(book.GetSheetName(0), historySheet); err != nil {
		_ = book.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(historyColumns))
	for i, col := range historyColumns {
		header[i] = col
	}
	if err := book.SetSheetRow(historySheet, "A1", &header); err != nil {
		_ = book.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = book.Close()
			return nil, fmt.Errorf("cell name: %w", err)
		}
		row := historyRow(rec)
		if err := book.SetSheetRow(historySheet, cell, &row); err != nil {
			_ = book.Close()
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := book.SetPanes(historySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		_ = book.Close()
		return nil, fmt.Errorf("freeze header: %w", err)
	}
	return book, nil
}

func historyRow(rec domain.ProcessingRecord) []any {
	var title, correspondent, docType, tags string
	if rec.Suggested != nil {
		title = rec.Suggested.Metadata.Title
		correspondent = rec.Suggested.Metadata.Correspondent
		docType = rec.Suggested.Metadata.DocumentType
		tags = strings.Join(rec.Suggested.Metadata.SuggestedTags, ", ")
	}
	processed := ""
	if rec.ProcessedAt != nil {
		processed = rec.ProcessedAt.UTC().Format(time.RFC3339)
	}
	return []any{
		rec.ID,
		rec.DocumentID,
		rec.DocumentTitle,
		string(rec.Status),
		rec.TextSource,
		rec.TokensUsed,
		rec.MetadataUpdated,
		rec.FailedStep,
		rec.ErrorMessage,
		title,
		correspondent,
		docType,
		tags,
		rec.CreatedAt.UTC().Format(time.RFC3339),
		processed,
	}
}
