package paperless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/infrastructure/resilience"
)

const maxErrorBody = 2048

type request struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      any
	binary    bool
}

type rawResponse struct {
	body        []byte
	contentType string
	disposition string
}

// do sends one request through the executor and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, req request, out any) error {
	raw, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(raw.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw.body, out); err != nil {
		return domain.WrapError(domain.ErrUpstream, req.operation, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) send(ctx context.Context, req request) (rawResponse, error) {
	var payload []byte
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return rawResponse{}, fmt.Errorf("marshal %s request: %w", req.operation, err)
		}
		payload = encoded
	}

	raw, err := resilience.Call(ctx, c.executor, "paperless."+req.operation, func(ctx context.Context) (rawResponse, error) {
		return c.roundTrip(ctx, req, payload)
	}, classifyPaperlessError)
	if err != nil {
		return rawResponse{}, mapPaperlessError(req.operation, err)
	}
	return raw, nil
}

func (c *Client) roundTrip(ctx context.Context, req request, payload []byte) (rawResponse, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return rawResponse{}, fmt.Errorf("create %s request: %w", req.operation, err)
	}
	httpReq.Header.Set("Authorization", "Token "+c.token)
	if !req.binary {
		httpReq.Header.Set("Accept", "application/json; version="+apiVersion)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.record(ctx, req, 0, started, err)
		return rawResponse{}, fmt.Errorf("paperless %s request: %w", req.operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &resilience.HTTPStatusError{
			Service:    "paperless",
			Operation:  req.operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(msg),
		}
		c.record(ctx, req, resp.StatusCode, started, statusErr)
		return rawResponse{}, statusErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record(ctx, req, resp.StatusCode, started, err)
		return rawResponse{}, fmt.Errorf("read %s response: %w", req.operation, err)
	}
	c.record(ctx, req, resp.StatusCode, started, nil)
	return rawResponse{
		body:        data,
		contentType: resp.Header.Get("Content-Type"),
		disposition: resp.Header.Get("Content-Disposition"),
	}, nil
}

func (c *Client) record(ctx context.Context, req request, status int, started time.Time, err error) {
	if c.recorder == nil {
		return
	}
	call := domain.APICall{
		Service:     "paperless",
		Endpoint:    req.path,
		Method:      req.method,
		StatusCode:  status,
		DurationMS:  time.Since(started).Milliseconds(),
		RequestData: req.body,
	}
	if err != nil {
		call.ErrorMessage = err.Error()
	}
	c.recorder.RecordCall(ctx, call)
}

// filenameFromDisposition returns the filename parameter of a Content-Disposition header.
func filenameFromDisposition(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["filename"])
}

// requestPath turns an absolute "next" link into a path relative to the base URL.
func (c *Client) requestPath(next string) (string, url.Values, error) {
	u, err := url.Parse(next)
	if err != nil {
		return "", nil, fmt.Errorf("parse next link %q: %w", next, err)
	}
	path := u.Path
	if base, err := url.Parse(c.baseURL); err == nil && base.Path != "" {
		path = strings.TrimPrefix(path, strings.TrimRight(base.Path, "/"))
	}
	return path, u.Query(), nil
}
