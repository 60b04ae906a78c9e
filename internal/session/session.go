// Package session loads a payment session and narrows it to what this
// client can pay with.
package session

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yourorg/checkout-orchestrator/internal/gateway"
	"github.com/yourorg/checkout-orchestrator/internal/interaction"
	"github.com/yourorg/checkout-orchestrator/internal/logger"
	"github.com/yourorg/checkout-orchestrator/internal/model"
	"github.com/yourorg/checkout-orchestrator/internal/monitor"
	"github.com/yourorg/checkout-orchestrator/internal/result"
)

const tracerName = "github.com/yourorg/checkout-orchestrator/internal/session"

var (
	ErrMissingOperationType = errors.New("Operation type is not specified")
	ErrEmptySession         = errors.New("List result after filtering doesn't contain any networks. Please check that you loaded needed payment services.")
)

// Supporter reports whether some payment service handles a network.
type Supporter interface {
	IsSupported(networkCode, paymentMethod string, providers []string) bool
}

// Session is a fetched list narrowed to supported networks. ListResult is
// the unfiltered snapshot and is read-only.
type Session struct {
	ListResult    model.ListResult
	Networks      []model.ApplicableNetwork
	Accounts      []model.AccountRegistration
	PresetAccount *model.PresetAccount
}

func (s Session) IsEmpty() bool {
	return len(s.Networks) == 0 && len(s.Accounts) == 0 && s.PresetAccount == nil
}

// FirstSelected returns the first network the gateway marked as selected.
func (s Session) FirstSelected() (model.ApplicableNetwork, bool) {
	return FirstSelected(s.Networks)
}

func FirstSelected(networks []model.ApplicableNetwork) (model.ApplicableNetwork, bool) {
	for _, n := range networks {
		if n.Selected != nil && *n.Selected {
			return n, true
		}
	}
	return model.ApplicableNetwork{}, false
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithContract validates fetched sessions before decoding them.
func WithContract(cm *monitor.ContractMonitor) Option {
	return func(r *Resolver) { r.contract = cm }
}

func WithExecutorOptions(opts gateway.ExecutorOptions) Option {
	return func(r *Resolver) { r.execOpts = opts }
}

func WithLogger(log logger.Interface) Option {
	return func(r *Resolver) { r.log = logger.OrNop(log) }
}

// Resolver runs fetch, the integration, operation and interaction checks,
// the support filter and the emptiness check, stopping at the first
// failure.
type Resolver struct {
	conn     gateway.Connection
	registry Supporter
	execOpts gateway.ExecutorOptions
	contract *monitor.ContractMonitor
	log      logger.Interface
}

func NewResolver(conn gateway.Connection, registry Supporter, opts ...Option) *Resolver {
	if conn == nil {
		panic("session: connection cannot be nil")
	}
	if registry == nil {
		panic("session: registry cannot be nil")
	}
	r := &Resolver{conn: conn, registry: registry, log: logger.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.Named("session")
	return r
}

// Fetch loads the session resource without checking it.
func (r *Resolver) Fetch(ctx context.Context, sessionURL string) (model.ListResult, error) {
	exec := gateway.NewExecutor[model.ListResult](r.conn, r.execOpts)
	return exec.Do(ctx, monitor.Checked[model.ListResult](gateway.GetListResult{URL: sessionURL}, r.contract))
}

// Resolve runs the whole pipeline.
func (r *Resolver) Resolve(ctx context.Context, sessionURL string) (Session, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "session.Resolve")
	defer span.End()

	var fetch result.Step[string, model.ListResult] = func(ctx context.Context, u string) result.Result[model.ListResult] {
		return result.From(r.Fetch(ctx, u))
	}
	checks := result.Lift(func(l model.ListResult) result.Result[model.ListResult] {
		return result.Then(result.Then(CheckIntegrationType(l), CheckOperationType), CheckInteractionCode)
	})
	filter := result.Lift(func(l model.ListResult) result.Result[Session] {
		return result.Ok(Filter(l, r.registry))
	})
	pipeline := result.Chain(result.Chain(result.Chain(fetch, checks), filter), result.Lift(RequireNotEmpty))

	s, err := pipeline(ctx, sessionURL).Get()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.log.Warn("payment session rejected", "error", err)
		return Session{}, err
	}

	span.SetAttributes(
		attribute.String("operation_type", s.ListResult.OperationType),
		attribute.Int("networks", len(s.Networks)),
		attribute.Int("accounts", len(s.Accounts)),
	)
	r.log.Info("payment session loaded",
		"operation_type", s.ListResult.OperationType,
		"networks", len(s.Networks),
		"accounts", len(s.Accounts),
		"preset", s.PresetAccount != nil,
	)
	return s, nil
}

// CheckIntegrationType accepts only MOBILE_NATIVE sessions.
func CheckIntegrationType(l model.ListResult) result.Result[model.ListResult] {
	if l.IntegrationType != model.IntegrationMobileNative {
		info := model.NewErrorInfo("Integration type is not supported: "+l.IntegrationType,
			interaction.New(interaction.CodeAbort, interaction.ReasonClientsideError), nil)
		return result.Err[model.ListResult](info)
	}
	return result.Ok(l)
}

func CheckOperationType(l model.ListResult) result.Result[model.ListResult] {
	if l.OperationType == "" {
		return result.Err[model.ListResult](ErrMissingOperationType)
	}
	return result.Ok(l)
}

// CheckInteractionCode fails with the session's own interaction unless it
// is PROCEED.
func CheckInteractionCode(l model.ListResult) result.Result[model.ListResult] {
	if l.Interaction.Code != interaction.CodeProceed {
		return result.Err[model.ListResult](model.NewErrorInfo(l.ResultInfo, l.Interaction, nil))
	}
	return result.Ok(l)
}

// Filter keeps what reg supports. UPDATE sessions also drop networks that
// can neither be registered nor used for recurring payments. Filtering a
// filtered session changes nothing.
func Filter(l model.ListResult, reg Supporter) Session {
	s := Session{ListResult: l}

	for _, n := range l.Networks.Applicable {
		if !reg.IsSupported(n.Code, n.Method, n.Providers) {
			continue
		}
		if l.OperationType == model.OperationUpdate &&
			n.Registration == model.RegistrationNone && n.Recurrence == model.RegistrationNone {
			continue
		}
		s.Networks = append(s.Networks, n)
	}
	for _, a := range l.Accounts {
		if reg.IsSupported(a.Code, a.Method, a.Providers) {
			s.Accounts = append(s.Accounts, a)
		}
	}
	if p := l.PresetAccount; p != nil && reg.IsSupported(p.Code, p.Method, p.Providers) {
		preset := *p
		s.PresetAccount = &preset
	}
	return s
}

func RequireNotEmpty(s Session) result.Result[Session] {
	if s.IsEmpty() {
		return result.Err[Session](ErrEmptySession)
	}
	return result.Ok(s)
}

// ErrorInfoFromLoadError converts a Resolve failure for the caller. A
// gateway or session ErrorInfo passes through; connectivity failures become
// ABORT/COMMUNICATION_FAILURE and everything else ABORT/CLIENTSIDE_ERROR.
func ErrorInfoFromLoadError(err error) *model.ErrorInfo {
	var info *model.ErrorInfo
	if errors.As(err, &info) {
		return info
	}
	reason := interaction.ReasonClientsideError
	if gateway.IsRecoverable(err) {
		reason = interaction.ReasonCommunicationFailure
	}
	return model.NewErrorInfo(err.Error(), interaction.New(interaction.CodeAbort, reason), err)
}
