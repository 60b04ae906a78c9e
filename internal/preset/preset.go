// Package preset charges the account a merchant chose ahead of time for a
// PRESET session.
package preset

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yourorg/checkout-orchestrator/internal/classifier"
	"github.com/yourorg/checkout-orchestrator/internal/gateway"
	"github.com/yourorg/checkout-orchestrator/internal/interaction"
	"github.com/yourorg/checkout-orchestrator/internal/logger"
	"github.com/yourorg/checkout-orchestrator/internal/metrics"
	"github.com/yourorg/checkout-orchestrator/internal/model"
	"github.com/yourorg/checkout-orchestrator/internal/payment"
	"github.com/yourorg/checkout-orchestrator/internal/risk"
	"github.com/yourorg/checkout-orchestrator/internal/session"
)

const tracerName = "github.com/yourorg/checkout-orchestrator/internal/preset"

const (
	paramInteractionCode   = "interactionCode"
	paramInteractionReason = "interactionReason"
)

var (
	// ErrChargeInProgress is returned when Charge is called while another
	// attempt on the same Service has not finished.
	ErrChargeInProgress = errors.New("preset charge already in progress")

	ErrNotPreset           = errors.New("List result doesn't contain operation type or operation type is not PRESET")
	ErrMissingPreset       = errors.New("Payment session doesn't contain preset account")
	ErrMissingOperationURL = errors.New("Preset account doesn't contain links.operation property, unable to charge")
	ErrMissingInteraction  = errors.New("Missing Interaction code and reason inside PresetAccount.redirect")
)

// Fetcher loads a session without filtering it.
type Fetcher interface {
	Fetch(ctx context.Context, sessionURL string) (model.ListResult, error)
}

// ServiceFactory creates a single-use payment service for a network.
type ServiceFactory interface {
	CreateService(networkCode, paymentMethod string, providers []string) (payment.Service, error)
}

// Redirector opens a redirect surface and blocks until it resolves.
type Redirector interface {
	Open(ctx context.Context, target, operationType string) (model.PaymentResult, error)
}

// Service runs one preset charge at a time.
type Service struct {
	fetcher    Fetcher
	services   ServiceFactory
	redirector Redirector
	classifier *classifier.Classifier
	risks      *risk.Registry
	log        logger.Interface

	inFlight atomic.Bool
}

// Option configures a Service.
type Option func(*Service)

// WithRiskProviders sets the registry risk providers are loaded from.
func WithRiskProviders(reg *risk.Registry) Option {
	return func(s *Service) { s.risks = reg }
}

func WithClassifier(c *classifier.Classifier) Option {
	return func(s *Service) { s.classifier = c }
}

func WithLogger(log logger.Interface) Option {
	return func(s *Service) { s.log = logger.OrNop(log) }
}

func NewService(f Fetcher, services ServiceFactory, r Redirector, opts ...Option) *Service {
	if f == nil {
		panic("preset: fetcher cannot be nil")
	}
	if services == nil {
		panic("preset: service factory cannot be nil")
	}
	if r == nil {
		panic("preset: redirector cannot be nil")
	}
	s := &Service{fetcher: f, services: services, redirector: r, log: logger.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("preset")
	if s.classifier == nil {
		s.classifier = classifier.New(nil, s.log)
	}
	if s.risks == nil {
		s.risks = risk.NewRegistry()
	}
	return s
}

// Charge fetches the session at listURL, charges its preset account and
// classifies the terminal result. Every gateway or validation failure is
// reported inside the Decision; the error is non-nil only when no result
// exists: ErrChargeInProgress, or a redirect that ended without one.
func (s *Service) Charge(ctx context.Context, listURL string) (classifier.Decision, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return classifier.Decision{}, ErrChargeInProgress
	}
	defer s.inFlight.Store(false)

	attemptID := uuid.NewString()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "preset.Charge")
	defer span.End()
	span.SetAttributes(attribute.String("attempt_id", attemptID))

	log := s.log.With("attempt_id", attemptID)
	log.Info("charging preset account")

	res, err := s.charge(ctx, log, listURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("preset charge ended without a result", "error", err)
		return classifier.Decision{}, err
	}

	d := s.classifier.Classify(classifier.FlowCharge, model.OperationPreset, res)
	metrics.PresetChargesTotal().WithLabelValues(d.Interaction.CodeString()).Inc()
	span.SetAttributes(
		attribute.String("interaction", d.Interaction.String()),
		attribute.String("route", d.Route.String()),
	)
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, res.ResultInfo())
	}
	log.Info("preset charge finished",
		"interaction", d.Interaction.String(),
		"route", d.Route.String(),
		"result_info", d.ResultInfo,
	)
	return d, nil
}

func (s *Service) charge(ctx context.Context, log logger.Interface, listURL string) (model.PaymentResult, error) {
	list, err := s.fetcher.Fetch(ctx, listURL)
	if err != nil {
		return model.Failure(session.ErrorInfoFromLoadError(err)), nil
	}

	req, err := s.buildRequest(ctx, list)
	if err != nil {
		log.Warn("preset session rejected", "error", err)
		return model.Failure(model.NewClientSideError(err)), nil
	}
	log = log.With("network_code", req.NetworkCode, "operation_type", req.OperationType)

	svc, err := s.services.CreateService(req.NetworkCode, req.PaymentMethod, req.Providers)
	if err != nil {
		log.Warn("no payment service for preset account", "error", err)
		return model.Failure(model.NewClientSideError(err)), nil
	}

	out := svc.Send(ctx, req)
	if !out.IsRedirect() {
		return out.Result, nil
	}
	log.Info("preset charge requires a redirect")
	return s.redirector.Open(ctx, out.Redirect.URL, out.Redirect.OperationType)
}

// buildRequest validates list and turns its preset account into a Charge
// carrying the collected risk data.
func (s *Service) buildRequest(ctx context.Context, list model.ListResult) (payment.OperationRequest, error) {
	if list.OperationType != model.OperationPreset {
		return payment.OperationRequest{}, ErrNotPreset
	}
	p := list.PresetAccount
	if p == nil {
		return payment.OperationRequest{}, ErrMissingPreset
	}
	if _, ok := p.Links.Get(model.LinkOperation); !ok {
		return payment.OperationRequest{}, ErrMissingOperationURL
	}

	rs := risk.NewService(s.risks, s.log)
	rs.Load(list.RiskProviders)

	return payment.OperationRequest{
		NetworkCode:   p.Code,
		PaymentMethod: p.Method,
		Providers:     p.Providers,
		OperationType: list.OperationType,
		Links:         p.Links,
		Body:          gateway.OperationBody{ProviderRequests: rs.Collect(ctx)},
	}, nil
}

// BuildSelectionResult reports a preset account selection to a caller that
// handles it without charging. The interaction comes from the
// interactionCode and interactionReason parameters of the account's
// redirect.
func BuildSelectionResult(p model.PresetAccount) model.PaymentResult {
	var code, reason string
	var haveCode, haveReason bool
	for _, param := range p.Redirect.Parameters {
		if param.Value == nil {
			continue
		}
		switch param.Name {
		case paramInteractionCode:
			code, haveCode = *param.Value, true
		case paramInteractionReason:
			reason, haveReason = *param.Value, true
		}
	}
	if !haveCode || !haveReason {
		return model.Failure(model.NewErrorInfo(ErrMissingInteraction.Error(),
			interaction.New(interaction.CodeAbort, interaction.ReasonClientsideError), ErrMissingInteraction))
	}

	redirect := p.Redirect
	return model.Success(model.OperationResult{
		ResultInfo:  "PresetAccount selected",
		Interaction: interaction.Parse(code, reason),
		Redirect:    &redirect,
	})
}
