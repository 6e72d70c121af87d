package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/resper/paperless-onS/internal/core/domain"
)

const apiLogWriteTimeout = 2 * time.Second

// APILogRepository writes the outbound call log. Write failures are logged
// and never reach the caller.
type APILogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewAPILogRepository(db *sql.DB, logger *slog.Logger) *APILogRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &APILogRepository{db: db, logger: logger}
}

func (r *APILogRepository) RecordCall(ctx context.Context, call domain.APICall) {
	if err := r.insert(ctx, call); err != nil {
		r.logger.Warn("api_log_write_failed", "service", call.Service, "endpoint", call.Endpoint, "error", err)
	}
}

func (r *APILogRepository) insert(ctx context.Context, call domain.APICall) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), apiLogWriteTimeout)
	defer cancel()

	var requestData []byte
	if call.RequestData != nil {
		encoded, err := json.Marshal(call.RequestData)
		if err != nil {
			return fmt.Errorf("marshal request data: %w", err)
		}
		requestData = encoded
	}
	var status sql.NullInt64
	if call.StatusCode > 0 {
		status = sql.NullInt64{Int64: int64(call.StatusCode), Valid: true}
	}
	created := call.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO api_logs (service, endpoint, method, status_code, duration_ms, request_data, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, call.Service, call.Endpoint, call.Method, status, call.DurationMS, requestData, call.ErrorMessage, created)
	if err != nil {
		return fmt.Errorf("insert api log: %w", err)
	}
	return nil
}

// Recent returns the newest log entries, newest first.
func (r *APILogRepository) Recent(ctx context.Context, limit int) ([]domain.APICall, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, service, endpoint, method, status_code, duration_ms, request_data, error_message, created_at
FROM api_logs
ORDER BY created_at DESC, id DESC
LIMIT $1
`, min(limit, maxHistoryLimit))
	if err != nil {
		return nil, fmt.Errorf("list api logs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.APICall, 0)
	for rows.Next() {
		var (
			call        domain.APICall
			status      sql.NullInt64
			requestData []byte
		)
		if err := rows.Scan(&call.ID, &call.Service, &call.Endpoint, &call.Method, &status, &call.DurationMS, &requestData, &call.ErrorMessage, &call.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api log: %w", err)
		}
		call.StatusCode = int(status.Int64)
		if len(requestData) > 0 {
			call.RequestData = json.RawMessage(requestData)
		}
		out = append(out, call)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api logs: %w", err)
	}
	return out, nil
}
