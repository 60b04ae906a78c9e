package redirect

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/yourorg/checkout-orchestrator/internal/logger"
	"github.com/yourorg/checkout-orchestrator/internal/metrics"
	"github.com/yourorg/checkout-orchestrator/internal/model"
)

// ErrRedirectPending is returned by Open while a surface is already open.
var ErrRedirectPending = errors.New("redirect: a redirect is already awaiting its callback")

// State of a Coordinator.
type State int

const (
	StateIdle State = iota
	StateAwaiting
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaiting:
		return "awaiting"
	case StateResolved:
		return "resolved"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Surface describes the external page the Presenter must show.
type Surface struct {
	CorrelationID string
	URL           string
	// CallbackURL is where the gateway webapp sends the customer back.
	CallbackURL string
	// DismissURL resolves the surface as abandoned when called.
	DismissURL string
}

// Presenter shows an external authentication surface. It must not block
// until the surface closes.
type Presenter interface {
	Present(ctx context.Context, s Surface) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(ctx context.Context, s Surface) error

func (f PresenterFunc) Present(ctx context.Context, s Surface) error { return f(ctx, s) }

// Coordinator runs one redirect at a time: Idle, then Awaiting while the
// surface is open, then Resolved by whichever of callback or dismissal
// comes first.
type Coordinator struct {
	registry  *Registry
	presenter Presenter
	baseURL   string
	log       logger.Interface

	mu      sync.Mutex
	state   State
	current string
}

// NewCoordinator wires a coordinator to the shared registry. baseURL is the
// root of the callback listener, e.g. http://127.0.0.1:8787.
func NewCoordinator(reg *Registry, p Presenter, baseURL string, log logger.Interface) *Coordinator {
	if reg == nil {
		panic("redirect: registry cannot be nil")
	}
	if p == nil {
		panic("redirect: presenter cannot be nil")
	}
	return &Coordinator{
		registry:  reg,
		presenter: p,
		baseURL:   strings.TrimRight(baseURL, "/"),
		log:       logger.OrNop(log).Named("redirect"),
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open presents target and blocks until the surface resolves. A callback
// yields the outcome parsed from its URL; a dismissal yields a missing
// result failure. The error is non-nil only when no outcome was produced:
// ErrRedirectPending, a presenter failure, or ctx ending first.
func (c *Coordinator) Open(ctx context.Context, target, operationType string) (model.PaymentResult, error) {
	c.mu.Lock()
	if c.state == StateAwaiting {
		c.mu.Unlock()
		return model.PaymentResult{}, ErrRedirectPending
	}
	id, events := c.registry.Register()
	c.state = StateAwaiting
	c.current = id
	c.mu.Unlock()

	log := c.log.With("correlation_id", id, "operation_type", operationType)

	surface := Surface{
		CorrelationID: id,
		URL:           target,
		CallbackURL:   c.baseURL + "/callback/" + url.PathEscape(id),
		DismissURL:    c.baseURL + "/dismiss/" + url.PathEscape(id),
	}
	if err := c.presenter.Present(ctx, surface); err != nil {
		c.abandon(id)
		log.Error("failed to present redirect surface", "error", err)
		return model.PaymentResult{}, fmt.Errorf("present redirect surface: %w", err)
	}
	log.Info("redirect surface opened", "host", hostOf(target))

	select {
	case ev := <-events:
		return c.resolve(log, id, ev, operationType), nil
	case <-ctx.Done():
		if !c.abandon(id) {
			// The listener already acknowledged a delivery; keep its outcome.
			return c.resolve(log, id, <-events, operationType), nil
		}
		metrics.RedirectResolutionsTotal().WithLabelValues(metrics.RedirectCanceled).Inc()
		log.Warn("redirect abandoned", "error", ctx.Err())
		return model.PaymentResult{}, ctx.Err()
	}
}

func (c *Coordinator) resolve(log logger.Interface, id string, ev CallbackEvent, operationType string) model.PaymentResult {
	c.finish(id)
	if ev.Dismissed || ev.URL == nil {
		metrics.RedirectResolutionsTotal().WithLabelValues(metrics.RedirectDismissed).Inc()
		log.Warn("redirect surface dismissed without a callback")
		return DismissedResult(operationType)
	}
	metrics.RedirectResolutionsTotal().WithLabelValues(metrics.RedirectCallback).Inc()
	res := ParseCallback(ev.URL, operationType)
	log.Info("redirect callback received", "interaction", res.Interaction().String())
	return res
}

// Dismiss resolves the open surface as abandoned. It reports false when
// nothing is awaiting or the callback already won.
func (c *Coordinator) Dismiss() bool {
	c.mu.Lock()
	id := c.current
	awaiting := c.state == StateAwaiting
	c.mu.Unlock()
	if !awaiting {
		return false
	}
	return c.registry.Deliver(id, CallbackEvent{Dismissed: true})
}

func (c *Coordinator) finish(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == id {
		c.state = StateResolved
		c.current = ""
	}
}

// abandon forgets the continuation and returns to Idle. It reports false,
// leaving the state untouched, when a delivery won the race.
func (c *Coordinator) abandon(id string) bool {
	if !c.registry.Forget(id) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == id {
		c.state = StateIdle
		c.current = ""
	}
	return true
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
