package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yourorg/checkout-orchestrator/internal/logger"
	"github.com/yourorg/checkout-orchestrator/internal/metrics"
	"github.com/yourorg/checkout-orchestrator/internal/model"
	"github.com/yourorg/checkout-orchestrator/internal/result"
)

const tracerName = "github.com/yourorg/checkout-orchestrator/internal/gateway"

const defaultUserAgent = "checkout-orchestrator/1.0"

// ExecutorOptions are shared by every Executor regardless of response type.
type ExecutorOptions struct {
	UserAgent string
	Logger    logger.Interface
}

// Executor runs one typed request at a time against a Connection.
//
// Completion is delivered exactly once per Execute, unless Cancel is called
// first, in which case it is never delivered. A completion callback must not
// call Cancel on the executor that invoked it.
type Executor[T any] struct {
	conn      Connection
	userAgent string
	log       logger.Interface

	// deliverMu serializes delivery with Cancel.
	deliverMu sync.Mutex

	mu       sync.Mutex
	inFlight bool
	gen      uint64
	cancel   context.CancelFunc
}

func NewExecutor[T any](conn Connection, opts ExecutorOptions) *Executor[T] {
	if conn == nil {
		panic("gateway: connection cannot be nil")
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Executor[T]{
		conn:      conn,
		userAgent: ua,
		log:       logger.OrNop(opts.Logger),
	}
}

// Execute starts req in the background and reports its outcome through
// completion. It fails with ErrRequestInFlight if a request is running.
func (e *Executor[T]) Execute(ctx context.Context, req Request[T], completion func(result.Result[T])) error {
	runCtx, id, err := e.begin(ctx)
	if err != nil {
		return err
	}
	go func() {
		v, err := e.run(runCtx, req)
		e.deliver(id, result.From(v, err), completion)
	}()
	return nil
}

// Do runs req and waits for its outcome. Cancelling ctx cancels the request.
func (e *Executor[T]) Do(ctx context.Context, req Request[T]) (T, error) {
	var zero T
	runCtx, id, err := e.begin(ctx)
	if err != nil {
		return zero, err
	}

	done := make(chan result.Result[T], 1)
	go func() {
		v, err := e.run(runCtx, req)
		e.deliver(id, result.From(v, err), func(r result.Result[T]) { done <- r })
	}()

	select {
	case r := <-done:
		return r.Get()
	case <-ctx.Done():
		e.cancelRun(id)
		return zero, ctx.Err()
	}
}

// Cancel aborts the request in flight, if any. Its completion will not fire.
func (e *Executor[T]) Cancel() {
	e.deliverMu.Lock()
	defer e.deliverMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Executor[T]) cancelRun(id uint64) {
	e.deliverMu.Lock()
	defer e.deliverMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen == id {
		e.stopLocked()
	}
}

// stopLocked assumes both locks are held.
func (e *Executor[T]) stopLocked() {
	if !e.inFlight {
		return
	}
	e.cancel()
	e.cancel = nil
	e.inFlight = false
	e.gen++
}

func (e *Executor[T]) begin(ctx context.Context) (context.Context, uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inFlight {
		return nil, 0, ErrRequestInFlight
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.inFlight = true
	e.gen++
	e.cancel = cancel
	return runCtx, e.gen, nil
}

func (e *Executor[T]) deliver(id uint64, r result.Result[T], completion func(result.Result[T])) {
	e.deliverMu.Lock()
	defer e.deliverMu.Unlock()

	e.mu.Lock()
	live := e.inFlight && e.gen == id
	if live {
		e.cancel()
		e.cancel = nil
		e.inFlight = false
	}
	e.mu.Unlock()

	if live {
		completion(r)
	}
}

func (e *Executor[T]) run(ctx context.Context, req Request[T]) (T, error) {
	var zero T
	ctx, span := otel.Tracer(tracerName).Start(ctx, "gateway."+req.Name())
	defer span.End()

	start := time.Now()
	httpReq, err := req.Build(ctx)
	if err != nil {
		metrics.GatewayRequestsTotal().WithLabelValues("", metrics.OutcomeBuild).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		e.log.Error("failed to build gateway request", "request", req.Name(), "error", err)
		return zero, err
	}

	method := httpReq.Method
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("server.address", httpReq.URL.Host),
	)
	httpReq.Header.Set("Content-Type", MediaType)
	httpReq.Header.Set("Accept", MediaType)
	httpReq.Header.Set("User-Agent", e.userAgent)

	e.log.Debug("sending gateway request", "request", req.Name(), "method", method, "host", httpReq.URL.Host)
	body, err := e.conn.Send(ctx, httpReq)
	metrics.GatewayRequestDuration().WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			serverErr := decodeServerError(statusErr)
			metrics.GatewayRequestsTotal().WithLabelValues(method, metrics.OutcomeServerError).Inc()
			span.SetAttributes(attribute.Int("http.response.status_code", statusErr.StatusCode))
			span.SetStatus(codes.Error, serverErr.Error())
			e.log.Warn("gateway returned an error", "request", req.Name(), "status", statusErr.StatusCode, "error", serverErr)
			return zero, serverErr
		}
		metrics.GatewayRequestsTotal().WithLabelValues(method, metrics.OutcomeTransport).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		e.log.Warn("gateway transport failure", "request", req.Name(), "recoverable", IsRecoverable(err), "error", err)
		return zero, err
	}

	v, err := req.Decode(body)
	if err != nil {
		metrics.GatewayRequestsTotal().WithLabelValues(method, metrics.OutcomeDecode).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		e.log.Error("failed to decode gateway response", "request", req.Name(), "error", err)
		return zero, err
	}

	metrics.GatewayRequestsTotal().WithLabelValues(method, metrics.OutcomeSuccess).Inc()
	return v, nil
}

// decodeServerError prefers the gateway's ErrorInfo and falls back to a
// NetworkingError carrying the raw body.
func decodeServerError(statusErr *StatusError) error {
	var info model.ErrorInfo
	if err := json.Unmarshal(statusErr.Body, &info); err == nil && info.Interaction.CodeString() != "" {
		return &info
	}
	return &NetworkingError{
		Description: "Non-OK response from a server",
		StatusCode:  statusErr.StatusCode,
		Body:        string(statusErr.Body),
	}
}
