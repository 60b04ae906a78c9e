// Package payment selects and runs payment services. A Service executes one
// operation request and reports either a terminal result or a request to
// open an external redirect surface.
package payment

import (
	"context"
	"errors"

	"github.com/yourorg/checkout-orchestrator/internal/gateway"
	"github.com/yourorg/checkout-orchestrator/internal/logger"
	"github.com/yourorg/checkout-orchestrator/internal/model"
	"github.com/yourorg/checkout-orchestrator/internal/monitor"
)

var (
	// ErrServiceNotFound is returned when no registered service supports a
	// network.
	ErrServiceNotFound = errors.New("network code or payment method is not supported by any payment service")

	// ErrAlreadySent is reported when a single-use service is asked to run a
	// second request.
	ErrAlreadySent = errors.New("payment service already handled a request")
)

// OperationRequest is one attempted operation against a network. A retry
// builds a new value.
type OperationRequest struct {
	NetworkCode   string
	PaymentMethod string
	Providers     []string
	OperationType string
	Links         model.Links
	Body          gateway.OperationBody
}

// DeletionRequest removes registrations of a stored account.
type DeletionRequest struct {
	Links         model.Links
	Body          *gateway.DeletionBody
	OperationType string
}

// RedirectRequest asks the caller to open URL in an external surface.
type RedirectRequest struct {
	URL           string
	OperationType string
}

// Outcome is what a Service reports: exactly one of a terminal Result or a
// Redirect.
type Outcome struct {
	Result   model.PaymentResult
	Redirect *RedirectRequest
}

func resultOutcome(r model.PaymentResult) Outcome { return Outcome{Result: r} }

func redirectOutcome(url, operationType string) Outcome {
	return Outcome{Redirect: &RedirectRequest{URL: url, OperationType: operationType}}
}

// IsRedirect reports whether the caller must open a redirect surface.
func (o Outcome) IsRedirect() bool { return o.Redirect != nil }

// Service runs operations for the networks it supports. Instances are single
// use: one Send or Delete per instance.
type Service interface {
	Send(ctx context.Context, req OperationRequest) Outcome
	Delete(ctx context.Context, req DeletionRequest) Outcome
}

// Deps are handed to every service constructor.
type Deps struct {
	Conn     gateway.Connection
	Executor gateway.ExecutorOptions
	Logger   logger.Interface
	// Contract, when set, validates every operation response before it is
	// decoded.
	Contract *monitor.ContractMonitor
}

// Execute sends req and decodes its OperationResult, checking Contract
// first.
func (d Deps) Execute(ctx context.Context, req gateway.Request[model.OperationResult]) (model.OperationResult, error) {
	exec := gateway.NewExecutor[model.OperationResult](d.Conn, d.Executor)
	return exec.Do(ctx, monitor.Checked(req, d.Contract))
}
