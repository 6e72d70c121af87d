package paperless

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/core/ports"
	"github.com/resper/paperless-onS/internal/infrastructure/resilience"
)

const (
	apiVersion      = "5"
	defaultPageSize = 1000
	defaultTimeout  = 30 * time.Second
	maxPages        = 100
)

var entityEndpoints = map[domain.EntityKind]string{
	domain.EntityCorrespondent: "/api/correspondents/",
	domain.EntityDocumentType:  "/api/document_types/",
	domain.EntityTag:           "/api/tags/",
	domain.EntityStoragePath:   "/api/storage_paths/",
}

type Options struct {
	Timeout  time.Duration
	PageSize int
	Executor *resilience.Executor
	Recorder ports.APICallRecorder
	Logger   *slog.Logger
}

// Client talks to the Paperless-NGX REST API.
type Client struct {
	baseURL    string
	token      string
	pageSize   int
	httpClient *http.Client
	executor   *resilience.Executor
	recorder   ports.APICallRecorder
	logger     *slog.Logger
}

func New(baseURL, token string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.Executor,
		recorder:   opts.Recorder,
		logger:     logger,
	}
}

type page[T any] struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []T     `json:"results"`
}

func (c *Client) GetDocument(ctx context.Context, id int) (*domain.Document, error) {
	var doc domain.Document
	if err := c.do(ctx, request{
		operation: "get_document",
		method:    http.MethodGet,
		path:      documentPath(id),
	}, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) DownloadDocument(ctx context.Context, id int) (*domain.DownloadedFile, error) {
	raw, err := c.send(ctx, request{
		operation: "download_document",
		method:    http.MethodGet,
		path:      documentPath(id) + "download/",
		query:     url.Values{"original": {"true"}},
		binary:    true,
	})
	if err != nil {
		return nil, err
	}
	return &domain.DownloadedFile{
		Content:     raw.body,
		ContentType: raw.contentType,
		Filename:    filenameFromDisposition(raw.disposition),
	}, nil
}

// ListEntities follows pagination until every entity of kind is loaded.
func (c *Client) ListEntities(ctx context.Context, kind domain.EntityKind) ([]domain.Entity, error) {
	endpoint, ok := entityEndpoints[kind]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "paperless list_entities", fmt.Errorf("unknown entity kind %q", kind))
	}
	return collectPages[domain.Entity](ctx, c, "list_"+string(kind), endpoint, url.Values{
		"page_size": {strconv.Itoa(c.pageSize)},
	}, 0)
}

func (c *Client) CreateEntity(ctx context.Context, kind domain.EntityKind, name string) (domain.Entity, error) {
	endpoint, ok := entityEndpoints[kind]
	if !ok {
		return domain.Entity{}, domain.WrapError(domain.ErrInvalidInput, "paperless create_entity", fmt.Errorf("unknown entity kind %q", kind))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Entity{}, domain.WrapError(domain.ErrInvalidInput, "paperless create_entity", fmt.Errorf("entity name is required"))
	}

	var created domain.Entity
	if err := c.do(ctx, request{
		operation: "create_" + string(kind),
		method:    http.MethodPost,
		path:      endpoint,
		body:      map[string]any{"name": name},
	}, &created); err != nil {
		return domain.Entity{}, err
	}
	c.logger.Info("paperless_entity_created", "kind", kind, "id", created.ID, "name", created.Name)
	return created, nil
}

func (c *Client) UpdateDocument(ctx context.Context, id int, update domain.MetadataUpdate) (*domain.Document, error) {
	if update.IsEmpty() {
		return c.GetDocument(ctx, id)
	}
	var doc domain.Document
	if err := c.do(ctx, request{
		operation: "update_document",
		method:    http.MethodPatch,
		path:      documentPath(id),
		body:      update.Fields(),
	}, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) SearchDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	query := url.Values{}
	if len(filter.TagIDs) > 0 {
		ids := make([]string, 0, len(filter.TagIDs))
		for _, id := range filter.TagIDs {
			ids = append(ids, strconv.Itoa(id))
		}
		query.Set("tags__id__in", strings.Join(ids, ","))
	}
	if filter.Correspondent != nil {
		query.Set("correspondent__id", strconv.Itoa(*filter.Correspondent))
	}
	if filter.DocumentType != nil {
		query.Set("document_type__id", strconv.Itoa(*filter.DocumentType))
	}
	if v := strings.TrimSpace(filter.CreatedAfter); v != "" {
		query.Set("created__date__gt", v)
	}
	if v := strings.TrimSpace(filter.CreatedBefore); v != "" {
		query.Set("created__date__lt", v)
	}
	if v := strings.TrimSpace(filter.Query); v != "" {
		query.Set("query", v)
	}
	pageSize := c.pageSize
	if filter.Limit > 0 && filter.Limit < pageSize {
		pageSize = filter.Limit
	}
	query.Set("page_size", strconv.Itoa(pageSize))

	return collectPages[domain.Document](ctx, c, "search_documents", "/api/documents/", query, filter.Limit)
}

// Ping checks connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, request{operation: "ping", method: http.MethodGet, path: "/api/"}, nil)
}

// collectPages reads a paginated list endpoint. limit <= 0 reads every page.
func collectPages[T any](ctx context.Context, c *Client, operation, path string, query url.Values, limit int) ([]T, error) {
	var out []T
	for i := 0; i < maxPages; i++ {
		var p page[T]
		if err := c.do(ctx, request{operation: operation, method: http.MethodGet, path: path, query: query}, &p); err != nil {
			return nil, err
		}
		out = append(out, p.Results...)
		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
		if p.Next == nil || strings.TrimSpace(*p.Next) == "" {
			return out, nil
		}
		next, nextQuery, err := c.requestPath(*p.Next)
		if err != nil {
			return nil, domain.WrapError(domain.ErrUpstream, "paperless "+operation, err)
		}
		path, query = next, nextQuery
	}
	c.logger.Warn("paperless_pagination_truncated", "operation", operation, "pages", maxPages)
	return out, nil
}

func documentPath(id int) string {
	return "/api/documents/" + strconv.Itoa(id) + "/"
}
