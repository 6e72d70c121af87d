package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/resper/paperless-onS/internal/core/domain"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// HistoryRepository stores the processing audit trail.
type HistoryRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *HistoryRepository) Create(ctx context.Context, record *domain.ProcessingRecord) error {
	if record.Status == "" {
		record.Status = domain.StatusProcessing
	}
	record.CreatedAt = r.now()
	row := r.db.QueryRowContext(ctx, `
INSERT INTO processing_history (document_id, document_title, status, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id
`, record.DocumentID, record.DocumentTitle, string(record.Status), record.CreatedAt)
	if err := row.Scan(&record.ID); err != nil {
		return fmt.Errorf("insert processing record: %w", err)
	}
	return nil
}

// Complete moves a processing record to completed. A record leaves the
// processing state at most once.
func (r *HistoryRepository) Complete(ctx context.Context, id int64, title, textSource string, tokens int, snapshot domain.AnalysisSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal analysis snapshot: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE processing_history
SET status = $2, document_title = $3, text_source = $4, tokens_used = $5, suggested_metadata = $6, processed_at = $7
WHERE id = $1 AND status = $8
`, id, string(domain.StatusCompleted), title, textSource, tokens, payload, r.now(), string(domain.StatusProcessing))
	if err != nil {
		return fmt.Errorf("complete processing record: %w", err)
	}
	return expectTransition(result, "complete processing record", id)
}

func (r *HistoryRepository) Fail(ctx context.Context, id int64, title, step, message string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE processing_history
SET status = $2, document_title = $3, failed_step = $4, error_message = $5, processed_at = $6
WHERE id = $1 AND status = $7
`, id, string(domain.StatusFailed), title, step, message, r.now(), string(domain.StatusProcessing))
	if err != nil {
		return fmt.Errorf("fail processing record: %w", err)
	}
	return expectTransition(result, "fail processing record", id)
}

func (r *HistoryRepository) MarkMetadataUpdated(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE processing_history SET metadata_updated = TRUE WHERE id = $1
`, id)
	if err != nil {
		return fmt.Errorf("mark metadata updated: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark metadata updated rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "mark metadata updated", fmt.Errorf("processing record %d not found", id))
	}
	return nil
}

// MarkLatestMetadataUpdated flags the newest completed run of a document.
// Documents without a completed run are left alone.
func (r *HistoryRepository) MarkLatestMetadataUpdated(ctx context.Context, documentID int) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE processing_history SET metadata_updated = TRUE
WHERE id = (
	SELECT id FROM processing_history
	WHERE document_id = $1 AND status = $2
	ORDER BY created_at DESC, id DESC
	LIMIT 1
)
`, documentID, string(domain.StatusCompleted))
	if err != nil {
		return fmt.Errorf("mark latest metadata updated: %w", err)
	}
	return nil
}

const historyColumns = `id, document_id, document_title, status, suggested_metadata, error_message, failed_step, text_source, tokens_used, metadata_updated, processed_at, created_at`

func (r *HistoryRepository) GetByID(ctx context.Context, id int64) (*domain.ProcessingRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+historyColumns+` FROM processing_history WHERE id = $1`, id)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get processing record", fmt.Errorf("processing record %d not found", id))
		}
		return nil, fmt.Errorf("get processing record: %w", err)
	}
	return &record, nil
}

func (r *HistoryRepository) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.ProcessingRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.DocumentID != nil {
		args = append(args, *filter.DocumentID)
		where = append(where, "document_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)
	offset := max(filter.Offset, 0)

	query := `SELECT ` + historyColumns + "\nFROM processing_history\n"
	if len(where) > 0 {
		query += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf("ORDER BY created_at DESC, id DESC\nLIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list processing records: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ProcessingRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan processing record: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processing records: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.ProcessingRecord, error) {
	var (
		record      domain.ProcessingRecord
		status      string
		suggested   []byte
		processedAt sql.NullTime
	)
	err := row.Scan(
		&record.ID,
		&record.DocumentID,
		&record.DocumentTitle,
		&status,
		&suggested,
		&record.ErrorMessage,
		&record.FailedStep,
		&record.TextSource,
		&record.TokensUsed,
		&record.MetadataUpdated,
		&processedAt,
		&record.CreatedAt,
	)
	if err != nil {
		return domain.ProcessingRecord{}, err
	}
	record.Status = domain.ProcessingStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		record.ProcessedAt = &t
	}
	if len(suggested) > 0 {
		var snapshot domain.AnalysisSnapshot
		if err := json.Unmarshal(suggested, &snapshot); err != nil {
			return domain.ProcessingRecord{}, fmt.Errorf("unmarshal analysis snapshot: %w", err)
		}
		record.Suggested = &snapshot
	}
	return record, nil
}

func expectTransition(result sql.Result, operation string, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrConflict, operation, fmt.Errorf("processing record %d is missing or already finished", id))
	}
	return nil
}
