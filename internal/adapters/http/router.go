package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/resper/paperless-onS/internal/config"
	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/core/ports"
	"github.com/resper/paperless-onS/internal/i18n"
	"github.com/resper/paperless-onS/internal/observability/metrics"
)

const serviceName = "api"

// Pinger checks that an upstream service accepts our credentials.
type Pinger interface {
	Ping(ctx context.Context) error
}

// APILogReader lists recently recorded outbound calls.
type APILogReader interface {
	Recent(ctx context.Context, limit int) ([]domain.APICall, error)
}

// Dependencies are the use cases and adapters served over HTTP. Scheduler,
// APILogs and Model may be nil; their endpoints then answer 412.
type Dependencies struct {
	Store     ports.DocumentStore
	Processor ports.DocumentProcessor
	Applier   ports.MetadataApplier
	Previewer ports.PromptPreviewer
	Extractor ports.TextExtractionService
	Settings  ports.SettingsService
	Scheduler ports.ProcessScheduler
	Configs   ports.PromptConfigurationService
	History   ports.HistoryReader
	APILogs   APILogReader
	Model     Pinger
	Catalog   *i18n.Catalog
}

type Router struct {
	cfg       config.Config
	deps      Dependencies
	catalog   *i18n.Catalog
	metrics   *metrics.HTTPServerMetrics
	logger    *slog.Logger
	validator *requestValidator
	mcp       http.Handler
}

func NewRouter(cfg config.Config, deps Dependencies, httpMetrics *metrics.HTTPServerMetrics, logger *slog.Logger) (*Router, error) {
	if logger == nil {
		logger = slog.Default()
	}
	doc, err := loadOpenAPI(context.Background())
	if err != nil {
		return nil, err
	}
	catalog := deps.Catalog
	if catalog == nil {
		if catalog, err = i18n.Load(); err != nil {
			return nil, err
		}
		deps.Catalog = catalog
	}
	rt := &Router{
		cfg:       cfg,
		deps:      deps,
		catalog:   catalog,
		metrics:   httpMetrics,
		logger:    logger,
		validator: newRequestValidator(doc),
	}
	rt.mcp = newMCPHandler(deps, logger)
	return rt, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", rt.health)
	mux.HandleFunc("GET /api/openapi.yaml", rt.openAPI)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	if rt.mcp != nil {
		mux.Handle("/mcp", rt.mcp)
	}

	rt.handle(mux, "GET /api/documents/{document_id}", rt.getDocument)
	rt.handle(mux, "GET /api/documents/by-tag/{tag_id}", rt.documentsByTag)
	rt.handle(mux, "GET /api/documents/filter", rt.filterDocuments)
	rt.handle(mux, "POST /api/documents/process", rt.processDocument)
	rt.handle(mux, "POST /api/documents/process-tag", rt.processTag)
	rt.handle(mux, "POST /api/documents/apply-metadata", rt.applyMetadata)
	rt.handle(mux, "POST /api/documents/extract-text", rt.extractText)

	rt.handle(mux, "GET /api/documents/history/all", rt.listHistory)
	rt.handle(mux, "GET /api/documents/history/export", rt.exportHistory)
	rt.handle(mux, "GET /api/documents/history/{document_id}", rt.documentHistory)

	rt.handle(mux, "GET /api/prompts/placeholders", rt.placeholders)
	rt.handle(mux, "GET /api/prompts/template/default", rt.defaultTemplate)
	rt.handle(mux, "POST /api/prompts/test", rt.testPrompt)
	rt.handle(mux, "GET /api/prompts/modular", rt.getModular)
	rt.handle(mux, "PUT /api/prompts/modular", rt.putModular)
	rt.handle(mux, "GET /api/prompts/modular/defaults", rt.modularDefaults)
	rt.handle(mux, "POST /api/prompts/modular/test", rt.testModular)
	rt.handle(mux, "GET /api/prompts/configurations", rt.listConfigurations)
	rt.handle(mux, "POST /api/prompts/configurations", rt.createConfiguration)
	rt.handle(mux, "GET /api/prompts/configurations/{config_id}", rt.getConfiguration)
	rt.handle(mux, "PUT /api/prompts/configurations/{config_id}", rt.updateConfiguration)
	rt.handle(mux, "DELETE /api/prompts/configurations/{config_id}", rt.deleteConfiguration)

	rt.handle(mux, "GET /api/tags/all", rt.listEntities(domain.EntityTag, "tags"))
	rt.handle(mux, "GET /api/correspondents/all", rt.listEntities(domain.EntityCorrespondent, "correspondents"))
	rt.handle(mux, "GET /api/document-types/all", rt.listEntities(domain.EntityDocumentType, "document_types"))
	rt.handle(mux, "GET /api/storage-paths/all", rt.listEntities(domain.EntityStoragePath, "storage_paths"))

	rt.handle(mux, "GET /api/settings", rt.getSettings)
	rt.handle(mux, "PUT /api/settings", rt.putSettings)
	rt.handle(mux, "GET /api/settings/api-logs", rt.apiLogs)
	rt.handle(mux, "POST /api/settings/test-paperless", rt.testPaperless)
	rt.handle(mux, "POST /api/settings/test-openai", rt.testOpenAI)

	var handler http.Handler = mux
	handler = backpressureWithHook(handler, rt.cfg.MaxInFlight, time.Duration(rt.cfg.BackpressureWaitMS)*time.Millisecond, rt.rejected("backpressure"))
	handler = rateLimitMiddleware(handler, rt.limiter(), rt.rejected("rate_limit"))
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, rt.validator.wrap(pattern, h))
}

func (rt *Router) limiter() *rate.Limiter {
	if rt.cfg.RateLimitRPS <= 0 {
		return nil
	}
	burst := rt.cfg.RateLimitBurst
	if burst <= 0 {
		burst = int(rt.cfg.RateLimitRPS) + 1
	}
	return rate.NewLimiter(rate.Limit(rt.cfg.RateLimitRPS), burst)
}

func (rt *Router) rejected(reason string) func() {
	return func() {
		if rt.metrics != nil {
			rt.metrics.RecordRejected(serviceName, reason)
		}
	}
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(OpenAPISpec())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
