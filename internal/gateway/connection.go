// Package gateway talks to the payment gateway: the Connection transport,
// the single-flight Executor and the typed requests it runs.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/checkout-orchestrator/internal/gateway/circuitbreaker"
	"github.com/yourorg/checkout-orchestrator/internal/logger"
	"github.com/yourorg/checkout-orchestrator/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// Connection sends one request and returns the raw response body. Responses
// with a status outside 200-399 come back as a *StatusError carrying the body.
type Connection interface {
	Send(ctx context.Context, req *http.Request) ([]byte, error)
}

// HTTPConnection is the production Connection over net/http.
type HTTPConnection struct {
	client  *http.Client
	timeout time.Duration
	breaker *circuitbreaker.CircuitBreaker
	log     logger.Interface
}

type ConnectionOption func(*HTTPConnection)

// WithHTTPClient replaces the default instrumented client. The client is
// never modified; WithTimeout applies to a copy.
func WithHTTPClient(c *http.Client) ConnectionOption {
	return func(conn *HTTPConnection) {
		conn.client = c
	}
}

func WithTimeout(d time.Duration) ConnectionOption {
	return func(conn *HTTPConnection) {
		conn.timeout = d
	}
}

// WithBreaker enables per-host failure tracking.
func WithBreaker(cb *circuitbreaker.CircuitBreaker) ConnectionOption {
	return func(conn *HTTPConnection) {
		conn.breaker = cb
	}
}

func WithConnectionLogger(l logger.Interface) ConnectionOption {
	return func(conn *HTTPConnection) {
		conn.log = l
	}
}

func NewHTTPConnection(opts ...ConnectionOption) *HTTPConnection {
	c := &HTTPConnection{
		client: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		client := *c.client
		client.Timeout = c.timeout
		c.client = &client
	}
	c.log = logger.OrNop(c.log)
	return c
}

func (c *HTTPConnection) Send(ctx context.Context, req *http.Request) ([]byte, error) {
	host := req.URL.Host
	if c.breaker != nil && !c.breaker.AllowRequest(host) {
		metrics.BreakerRejectionsTotal().WithLabelValues(host).Inc()
		c.log.Warn("gateway host circuit open, request refused", "host", host)
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, host)
	}

	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		c.recordFailure(host, err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure(host, err)
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if c.breaker != nil {
		c.breaker.RecordSuccess(host)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

func (c *HTTPConnection) recordFailure(host string, err error) {
	if c.breaker != nil && IsRecoverable(err) {
		c.breaker.RecordFailure(host)
	}
}

// IsRecoverable reports whether err is a connectivity failure that a caller
// may retry: lost or refused connections, timeouts, unreachable networks and
// an open host circuit. Caller cancellation is not recoverable.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}

	for _, errno := range []syscall.Errno{
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.ECONNABORTED,
		syscall.ENETUNREACH,
		syscall.EHOSTUNREACH,
		syscall.ENETDOWN,
		syscall.EPIPE,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}
