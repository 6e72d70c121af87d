package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/infrastructure/resilience"
)

const (
	DefaultSubject = "paperless.documents.process"
	queueGroup     = "paperless-workers"
)

// Queue carries process requests over NATS core subjects with a worker queue group.
type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	logger   *slog.Logger
}

type Options struct {
	Name                 string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	name := options.Name
	if name == "" {
		name = "paperless-ons"
	}
	if subject == "" {
		subject = DefaultSubject
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Ping reports whether the connection is usable.
func (q *Queue) Ping(context.Context) error {
	if q.conn == nil || !q.conn.IsConnected() {
		return domain.WrapError(domain.ErrTemporary, "nats ping", nats.ErrDisconnected)
	}
	return nil
}

func (q *Queue) PublishProcessRequest(ctx context.Context, req domain.ProcessRequest) error {
	payload, err := encodeRequest(req)
	if err != nil {
		return err
	}

	_, err = resilience.Call(ctx, q.executor, "nats.publish", func(context.Context) (struct{}, error) {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return struct{}{}, fmt.Errorf("nats publish: %w", err)
		}
		return struct{}{}, nil
	}, classifyNATSError)
	if err != nil {
		return resilience.WrapTemporaryIfNeeded("nats publish", err, classifyNATSError)
	}
	return nil
}

// SubscribeProcessRequests blocks until ctx is done, then drains the
// subscription: requests already delivered to this worker are still handled.
func (q *Queue) SubscribeProcessRequests(ctx context.Context, handler func(context.Context, domain.ProcessRequest) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, queueGroup, func(msg *nats.Msg) {
		q.deliver(ctx, handler, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := waitDrained(sub, drainTimeout); err != nil {
		return err
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// deliver decodes one message and runs handler on it. The handler context
// does not inherit the subscriber's cancellation, so a request picked up
// during the drain runs to completion.
func (q *Queue) deliver(ctx context.Context, handler func(context.Context, domain.ProcessRequest) error, data []byte) {
	req, err := decodeRequest(data)
	if err != nil {
		q.logger.Error("process_request_decode_failed", "error", err, "payload_bytes", len(data))
		return
	}
	if ctx.Err() != nil {
		q.logger.Info("process_request_drained", "document_id", req.DocumentID)
	}

	handlerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	if err := handler(handlerCtx, req); err != nil {
		q.logger.Error("worker_handler_failed", "document_id", req.DocumentID, "error", err)
	}
}

const drainTimeout = 10 * time.Minute

// waitDrained blocks until the drained subscription is closed.
func waitDrained(sub *nats.Subscription, timeout time.Duration) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(timeout)
	for sub.IsValid() {
		select {
		case <-ticker.C:
		case <-deadline:
			return fmt.Errorf("nats drain subscription: %w", nats.ErrTimeout)
		}
	}
	return nil
}

func encodeRequest(req domain.ProcessRequest) ([]byte, error) {
	if req.DocumentID <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode process request", fmt.Errorf("document id must be positive, got %d", req.DocumentID))
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal process request: %w", err)
	}
	return payload, nil
}

func decodeRequest(data []byte) (domain.ProcessRequest, error) {
	var req domain.ProcessRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.ProcessRequest{}, fmt.Errorf("unmarshal process request: %w", err)
	}
	if req.DocumentID <= 0 {
		return domain.ProcessRequest{}, fmt.Errorf("process request without document id")
	}
	return req, nil
}

func classifyNATSError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) ||
		errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
