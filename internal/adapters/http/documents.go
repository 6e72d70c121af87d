package httpadapter

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/resper/paperless-onS/internal/core/domain"
)

type processDocumentRequest struct {
	DocumentID            int    `json:"document_id" validate:"gt=0"`
	AutoUpdate            bool   `json:"auto_update"`
	TextSourceMode        string `json:"text_source_mode" validate:"omitempty,oneof=paperless ai_ocr"`
	PromptConfigurationID *int64 `json:"prompt_configuration_id" validate:"omitempty,gt=0"`
	EntityPolicy          string `json:"entity_policy" validate:"omitempty,oneof=reuse create"`
	ClearExistingTags     bool   `json:"clear_existing_tags"`
	Async                 bool   `json:"async"`
}

func (req processDocumentRequest) toDomain(lang string) domain.ProcessRequest {
	policy, _ := domain.ParseEntityPolicy(req.EntityPolicy)
	return domain.ProcessRequest{
		DocumentID:            req.DocumentID,
		AutoUpdate:            req.AutoUpdate,
		TextSourceMode:        requestedMode(req.TextSourceMode),
		PromptConfigurationID: req.PromptConfigurationID,
		EntityPolicy:          policy,
		ClearExistingTags:     req.ClearExistingTags,
		Language:              lang,
	}
}

type processTagRequest struct {
	TagID                 int    `json:"tag_id" validate:"gt=0"`
	AutoUpdate            bool   `json:"auto_update"`
	TextSourceMode        string `json:"text_source_mode" validate:"omitempty,oneof=paperless ai_ocr"`
	PromptConfigurationID *int64 `json:"prompt_configuration_id" validate:"omitempty,gt=0"`
	EntityPolicy          string `json:"entity_policy" validate:"omitempty,oneof=reuse create"`
}

type applyMetadataRequest struct {
	DocumentID   int                      `json:"document_id" validate:"gt=0"`
	Suggested    domain.SuggestedMetadata `json:"suggested_metadata"`
	EntityPolicy string                   `json:"entity_policy" validate:"omitempty,oneof=reuse create"`
}

type documentIDRequest struct {
	DocumentID int `json:"document_id" validate:"gt=0"`
}

type documentListResponse struct {
	Success   bool              `json:"success"`
	Count     int               `json:"count"`
	Documents []domain.Document `json:"documents"`
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID[int](r, "document_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	doc, err := rt.deps.Store.GetDocument(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) documentsByTag(w http.ResponseWriter, r *http.Request) {
	tagID, err := pathID[int](r, "tag_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	docs, err := rt.deps.Store.SearchDocuments(r.Context(), domain.DocumentFilter{TagIDs: []int{tagID}})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentListResponse{Success: true, Count: len(docs), Documents: docs})
}

func (rt *Router) filterDocuments(w http.ResponseWriter, r *http.Request) {
	var filter domain.DocumentFilter
	bindings := []struct {
		name string
		dest any
	}{
		{"tag_ids", &filter.TagIDs},
		{"correspondent", &filter.Correspondent},
		{"document_type", &filter.DocumentType},
		{"created_after", &filter.CreatedAfter},
		{"created_before", &filter.CreatedBefore},
		{"query", &filter.Query},
		{"limit", &filter.Limit},
	}
	for _, b := range bindings {
		if err := bindQuery(r, b.name, b.dest); err != nil {
			rt.writeError(w, r, err)
			return
		}
	}
	docs, err := rt.deps.Store.SearchDocuments(r.Context(), filter)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentListResponse{Success: true, Count: len(docs), Documents: docs})
}

// processDocument runs the pipeline inline, or queues it when async is set.
// A failed run answers with the result body and the status of its cause.
func (rt *Router) processDocument(w http.ResponseWriter, r *http.Request) {
	var req processDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	tr := rt.translator(r)
	processReq := req.toDomain(tr.Lang())

	if req.Async {
		if rt.deps.Scheduler == nil {
			rt.writeError(w, r, domain.WrapError(domain.ErrNotConfigured, "queue process request", errors.New("no processing queue configured")))
			return
		}
		if err := rt.deps.Scheduler.Enqueue(r.Context(), processReq); err != nil {
			rt.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"success":     true,
			"queued":      1,
			"document_id": req.DocumentID,
			"message":     tr.T("pipeline.async_accepted"),
		})
		return
	}

	result, err := rt.deps.Processor.Process(r.Context(), processReq)
	if err != nil {
		if result == nil {
			rt.writeError(w, r, err)
			return
		}
		status := mapErrorToHTTPStatus(err)
		if status == http.StatusInternalServerError {
			rt.logger.Error("document_processing_failed", "document_id", req.DocumentID, "step", result.Step, "error", err)
		}
		writeJSON(w, status, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) processTag(w http.ResponseWriter, r *http.Request) {
	var req processTagRequest
	if err := decodeJSON(r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	if rt.deps.Scheduler == nil {
		rt.writeError(w, r, domain.WrapError(domain.ErrNotConfigured, "queue tag processing", errors.New("no processing queue configured")))
		return
	}
	template := processDocumentRequest{
		AutoUpdate:            req.AutoUpdate,
		TextSourceMode:        req.TextSourceMode,
		PromptConfigurationID: req.PromptConfigurationID,
		EntityPolicy:          req.EntityPolicy,
	}.toDomain(rt.translator(r).Lang())

	queued, err := rt.deps.Scheduler.EnqueueByTag(r.Context(), req.TagID, template)
	if err != nil {
		rt.logger.Warn("tag_enqueue_incomplete", "tag_id", req.TagID, "queued", queued, "error", err)
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"tag_id":  req.TagID,
		"queued":  queued,
		"message": rt.translator(r).F("pipeline.tag_enqueued", map[string]string{"count": strconv.Itoa(queued)}),
	})
}

func (rt *Router) applyMetadata(w http.ResponseWriter, r *http.Request) {
	var req applyMetadataRequest
	if err := decodeJSON(r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	policy, _ := domain.ParseEntityPolicy(req.EntityPolicy)
	result, err := rt.deps.Applier.Apply(r.Context(), req.DocumentID, req.Suggested, policy)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) extractText(w http.ResponseWriter, r *http.Request) {
	var req documentIDRequest
	if err := decodeJSON(r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	result, err := rt.deps.Extractor.ExtractText(r.Context(), req.DocumentID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// requestedMode keeps an empty mode empty so the pipeline falls back to the
// stored setting.
func requestedMode(raw string) domain.TextSourceMode {
	if raw == "" {
		return ""
	}
	mode, _ := domain.ParseTextSourceMode(raw)
	return mode
}
