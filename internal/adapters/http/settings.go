package httpadapter

import (
	"errors"
	"net/http"
	"strings"

	"github.com/resper/paperless-onS/internal/core/domain"
)

const apiLogsDefaultLimit = 100

type connectionTestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (rt *Router) listEntities(kind domain.EntityKind, field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entities, err := rt.deps.Store.ListEntities(r.Context(), kind)
		if err != nil {
			rt.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"count":   len(entities),
			field:     entities,
		})
	}
}

func (rt *Router) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := rt.deps.Settings.Analysis(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (rt *Router) putSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := readJSON(r, &values); err != nil {
		rt.writeError(w, r, err)
		return
	}
	settings, err := rt.deps.Settings.Update(r.Context(), values)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (rt *Router) apiLogs(w http.ResponseWriter, r *http.Request) {
	if rt.deps.APILogs == nil {
		rt.writeError(w, r, domain.WrapError(domain.ErrNotConfigured, "list api logs", errors.New("api log is not persisted")))
		return
	}
	limit := apiLogsDefaultLimit
	if err := bindQuery(r, "limit", &limit); err != nil {
		rt.writeError(w, r, err)
		return
	}
	calls, err := rt.deps.APILogs.Recent(r.Context(), limit)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(calls), "calls": calls})
}

// testPaperless and testOpenAI always answer 200; the outcome is in the body.
func (rt *Router) testPaperless(w http.ResponseWriter, r *http.Request) {
	rt.writeConnectionTest(w, r, rt.deps.Store, "settings.paperless_ok", "settings.paperless_failed")
}

func (rt *Router) testOpenAI(w http.ResponseWriter, r *http.Request) {
	rt.writeConnectionTest(w, r, rt.deps.Model, "settings.openai_ok", "settings.openai_failed")
}

func (rt *Router) writeConnectionTest(w http.ResponseWriter, r *http.Request, target Pinger, okKey, failedKey string) {
	var err error
	if target == nil {
		err = domain.ErrNotConfigured
	} else {
		err = target.Ping(r.Context())
	}
	if err != nil {
		rt.logger.Warn("connection_test_failed", "check", strings.TrimPrefix(failedKey, "settings."), "error", err)
		writeJSON(w, http.StatusOK, connectionTestResponse{
			Success: false,
			Message: rt.translator(r).F(failedKey, map[string]string{"error": err.Error()}),
		})
		return
	}
	writeJSON(w, http.StatusOK, connectionTestResponse{Success: true, Message: rt.translator(r).T(okKey)})
}
