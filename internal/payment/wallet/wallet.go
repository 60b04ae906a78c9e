// Package wallet implements the provider-backed wallet service. A payment
// runs an OnSelect handshake, tokenizes the wallet authorization with the
// provider parameters the gateway returned, and charges with the resulting
// nonce.
package wallet

import (
	"context"
	"errors"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yourorg/checkout-orchestrator/internal/gateway"
	"github.com/yourorg/checkout-orchestrator/internal/logger"
	"github.com/yourorg/checkout-orchestrator/internal/model"
	"github.com/yourorg/checkout-orchestrator/internal/payment"
	"github.com/yourorg/checkout-orchestrator/internal/result"
)

const (
	ServiceName = "applepay-braintree"

	NetworkCode   = "APPLEPAY"
	PaymentMethod = "WALLET"
	ProviderCode  = "BRAINTREE"

	// ProviderType is attached to the providerRequest of the final charge.
	ProviderType = "PAYMENT_PROVIDER"

	ParamAuthorization = "braintreeJsAuthorisation"
	ParamCurrencyCode  = "currencyCode"
	ParamAmount        = "amountInMajorUnits"
	ParamMerchantID    = "appleMerchantId"
	ParamNonce         = "nonce"
)

const tracerName = "github.com/yourorg/checkout-orchestrator/internal/payment/wallet"

var (
	ErrMissingProviderResponse = errors.New("Response from a server doesn't contain providerResponse that is required to make onSelect call")
	ErrMissingAuthorization    = errors.New("OperationResult doesn't contain braintreeJsAuthorisation")
	ErrMissingAmount           = errors.New("amountInMajorUnits is not present in onSelect operation result, couldn't build payment request")
	ErrEmptyNonce              = errors.New("tokenizer returned an empty nonce")
)

// TokenRequest is what the provider needs to authorize a wallet payment.
type TokenRequest struct {
	Authorization string
	CurrencyCode  string
	Amount        string
	MerchantID    string
}

// Tokenizer exchanges a wallet authorization for a single-use payment nonce.
type Tokenizer interface {
	Tokenize(ctx context.Context, req TokenRequest) (string, error)
}

// TokenizerFunc adapts a function to Tokenizer.
type TokenizerFunc func(ctx context.Context, req TokenRequest) (string, error)

func (f TokenizerFunc) Tokenize(ctx context.Context, req TokenRequest) (string, error) {
	return f(ctx, req)
}

// Supports accepts the wallet network when the provider list names
// BRAINTREE as its only or first provider.
func Supports(networkCode, paymentMethod string, providers []string) bool {
	return networkCode == NetworkCode && paymentMethod == PaymentMethod && payment.RequireProvider(ProviderCode, providers)
}

// Descriptor registers the wallet service. It panics on a nil tokenizer.
func Descriptor(t Tokenizer) payment.ServiceDescriptor {
	if t == nil {
		panic("wallet: tokenizer cannot be nil")
	}
	return payment.ServiceDescriptor{
		Name:     ServiceName,
		Supports: Supports,
		New: func(d payment.Deps) payment.Service {
			return NewService(d, t)
		},
	}
}

// Service is single use.
type Service struct {
	deps      payment.Deps
	tokenizer Tokenizer
	log       logger.Interface
	used      atomic.Bool
}

func NewService(deps payment.Deps, t Tokenizer) *Service {
	if deps.Conn == nil {
		panic("wallet: connection cannot be nil")
	}
	if t == nil {
		panic("wallet: tokenizer cannot be nil")
	}
	return &Service{deps: deps, tokenizer: t, log: logger.OrNop(deps.Logger).Named(ServiceName)}
}

// Send runs onselect, tokenize, then charge. The first failing stage ends
// the pipeline and becomes the failure result.
func (s *Service) Send(ctx context.Context, req payment.OperationRequest) payment.Outcome {
	if !s.used.CompareAndSwap(false, true) {
		return failure(payment.ErrAlreadySent, req.OperationType)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "wallet.Send")
	span.SetAttributes(
		attribute.String("network_code", req.NetworkCode),
		attribute.String("operation_type", req.OperationType),
	)
	defer span.End()

	onSelect := result.From(gateway.NewOnSelect(req.Links))
	selected := result.Then(onSelect, func(r gateway.OnSelect) result.Result[model.OperationResult] {
		s.log.Debug("requesting provider parameters", "network_code", req.NetworkCode)
		return result.From(s.deps.Execute(ctx, r))
	})
	tokenReq := result.Then(selected, tokenRequestFrom)
	nonce := result.Then(tokenReq, func(tr TokenRequest) result.Result[string] {
		return s.tokenize(ctx, tr)
	})
	charge := result.Then(nonce, func(n string) result.Result[gateway.Charge] {
		body := req.Body
		body.ProviderRequest = &model.ProviderParameters{
			ProviderCode: ProviderCode,
			ProviderType: ProviderType,
			Parameters:   []model.Parameter{model.NewParameter(ParamNonce, n)},
		}
		return result.From(gateway.NewCharge(req.Links, body))
	})

	c, err := charge.Get()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Warn("wallet payment stopped before charge", "error", err)
		return failure(err, req.OperationType)
	}

	res, err := s.deps.Execute(ctx, c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return payment.ParseResponse(res, err, req.OperationType)
}

// Delete removes a stored wallet account. No body is sent; the gateway
// decides what is removed.
func (s *Service) Delete(ctx context.Context, req payment.DeletionRequest) payment.Outcome {
	if !s.used.CompareAndSwap(false, true) {
		return failure(payment.ErrAlreadySent, req.OperationType)
	}
	del, err := gateway.NewDeleteAccount(req.Links, nil)
	if err != nil {
		return failure(err, req.OperationType)
	}
	res, err := s.deps.Execute(ctx, del)
	if err != nil {
		return failure(err, req.OperationType)
	}
	return payment.Outcome{Result: model.Success(res)}
}

func (s *Service) tokenize(ctx context.Context, tr TokenRequest) result.Result[string] {
	nonce, err := s.tokenizer.Tokenize(ctx, tr)
	if err != nil {
		return result.Err[string](err)
	}
	if nonce == "" {
		return result.Err[string](ErrEmptyNonce)
	}
	return result.Ok(nonce)
}

func tokenRequestFrom(res model.OperationResult) result.Result[TokenRequest] {
	if res.ProviderResponse == nil {
		return result.Err[TokenRequest](ErrMissingProviderResponse)
	}
	p := *res.ProviderResponse
	auth, ok := p.Lookup(ParamAuthorization)
	if !ok || auth == "" {
		return result.Err[TokenRequest](ErrMissingAuthorization)
	}
	amount, ok := p.Lookup(ParamAmount)
	if !ok {
		return result.Err[TokenRequest](ErrMissingAmount)
	}
	currency, _ := p.Lookup(ParamCurrencyCode)
	merchant, _ := p.Lookup(ParamMerchantID)
	return result.Ok(TokenRequest{
		Authorization: auth,
		CurrencyCode:  currency,
		Amount:        amount,
		MerchantID:    merchant,
	})
}

func failure(err error, operationType string) payment.Outcome {
	return payment.Outcome{Result: model.Failure(payment.ErrorInfoFromError(err, operationType))}
}
