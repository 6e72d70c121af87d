package httpadapter

import (
	"net/http"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/core/prompting"
	"github.com/resper/paperless-onS/internal/core/usecase"
)

type placeholderInfo struct {
	Placeholder string `json:"placeholder"`
	Description string `json:"description"`
	Example     string `json:"example"`
}

type testPromptRequest struct {
	DocumentID     int    `json:"document_id" validate:"gt=0"`
	PromptTemplate string `json:"prompt_template"`
	SystemPrompt   string `json:"system_prompt"`
	TextSourceMode string `json:"text_source_mode" validate:"omitempty,oneof=paperless ai_ocr"`
}

type testModularRequest struct {
	DocumentID      int                      `json:"document_id" validate:"gt=0"`
	Prompts         *domain.ModularPromptSet `json:"prompts"`
	ConfigurationID *int64                   `json:"configuration_id" validate:"omitempty,gt=0"`
}

type configurationRequest struct {
	Name        string                  `json:"name" validate:"required,max=100"`
	Description string                  `json:"description"`
	Prompts     domain.ModularPromptSet `json:"prompts"`
	UseJSONMode *bool                   `json:"use_json_mode"`
}

func (req configurationRequest) toDomain(id int64) domain.PromptConfiguration {
	useJSON := true
	if req.UseJSONMode != nil {
		useJSON = *req.UseJSONMode
	}
	return domain.PromptConfiguration{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Prompts:     req.Prompts,
		UseJSONMode: useJSON,
	}
}

func (rt *Router) placeholders(w http.ResponseWriter, r *http.Request) {
	tr := rt.translator(r)
	out := make([]placeholderInfo, 0, len(prompting.PlaceholderNames))
	for _, name := range prompting.PlaceholderNames {
		out = append(out, placeholderInfo{
			Placeholder: "{" + name + "}",
			Description: tr.T("placeholders." + name + ".description"),
			Example:     tr.T("placeholders." + name + ".example"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "placeholders": out})
}

func (rt *Router) defaultTemplate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"template":      prompting.DefaultTemplate,
		"system_prompt": prompting.DefaultSystemPrompt,
	})
}

func (rt *Router) testPrompt(w http.ResponseWriter, r *http.Request) {
	var req testPromptRequest
	if err := decodeJSON(r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writePreview(w, r, domain.PromptPreviewRequest{
		DocumentID:     req.DocumentID,
		PromptTemplate: req.PromptTemplate,
		SystemPrompt:   req.SystemPrompt,
		TextSourceMode: requestedMode(req.TextSourceMode),
	})
}

func (rt *Router) testModular(w http.ResponseWriter, r *http.Request) {
	var req testModularRequest
	if err := decodeJSON(r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writePreview(w, r, domain.PromptPreviewRequest{
		DocumentID:      req.DocumentID,
		Modular:         req.Prompts,
		ConfigurationID: req.ConfigurationID,
	})
}

func (rt *Router) writePreview(w http.ResponseWriter, r *http.Request, req domain.PromptPreviewRequest) {
	preview, err := rt.deps.Previewer.Preview(r.Context(), req)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (rt *Router) getModular(w http.ResponseWriter, r *http.Request) {
	settings, err := rt.deps.Settings.Analysis(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prompts":       settings.Modular,
		"active_fields": settings.Modular.ActiveFields(),
		"use_json_mode": settings.UseJSONMode,
	})
}

func (rt *Router) putModular(w http.ResponseWriter, r *http.Request) {
	var set domain.ModularPromptSet
	if err := decodeJSON(r, &set); err != nil {
		rt.writeError(w, r, err)
		return
	}
	settings, err := rt.deps.Settings.Update(r.Context(), usecase.ModularSettingValues(set))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prompts":       settings.Modular,
		"active_fields": settings.Modular.ActiveFields(),
		"use_json_mode": settings.UseJSONMode,
	})
}

func (rt *Router) modularDefaults(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"prompts": rt.deps.Settings.ModularDefaults()})
}

func (rt *Router) listConfigurations(w http.ResponseWriter, r *http.Request) {
	configs, err := rt.deps.Configs.List(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(configs), "configurations": configs})
}

func (rt *Router) getConfiguration(w http.ResponseWriter, r *http.Request) {
	id, err := pathID[int64](r, "config_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	cfg, err := rt.deps.Configs.Get(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (rt *Router) createConfiguration(w http.ResponseWriter, r *http.Request) {
	var req configurationRequest
	if err := decodeJSON(r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	cfg, err := rt.deps.Configs.Create(r.Context(), req.toDomain(0))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

func (rt *Router) updateConfiguration(w http.ResponseWriter, r *http.Request) {
	id, err := pathID[int64](r, "config_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	var req configurationRequest
	if err := decodeJSON(r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	cfg, err := rt.deps.Configs.Update(r.Context(), req.toDomain(id))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (rt *Router) deleteConfiguration(w http.ResponseWriter, r *http.Request) {
	id, err := pathID[int64](r, "config_id")
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if err := rt.deps.Configs.Delete(r.Context(), id); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
