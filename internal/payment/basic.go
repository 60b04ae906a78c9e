package payment

import (
	"context"
	"sync/atomic"

	"github.com/yourorg/checkout-orchestrator/internal/gateway"
	"github.com/yourorg/checkout-orchestrator/internal/logger"
	"github.com/yourorg/checkout-orchestrator/internal/model"
)

const BasicServiceName = "basic"

var (
	basicPaymentMethods = []string{"DEBIT_CARD", "CREDIT_CARD"}
	basicNetworkCodes   = []string{"SEPADD", "PAYPAL", "WECHATPC-R"}
)

// BasicServiceDescriptor describes the redirect-capable service that needs
// no external provider.
func BasicServiceDescriptor() ServiceDescriptor {
	return ServiceDescriptor{
		Name:     BasicServiceName,
		Supports: BasicSupports,
		New: func(d Deps) Service {
			return NewBasicService(d)
		},
	}
}

// BasicSupports accepts card payment methods and a fixed set of redirect
// networks.
func BasicSupports(networkCode, paymentMethod string, _ []string) bool {
	return contains(basicPaymentMethods, paymentMethod) || contains(basicNetworkCodes, networkCode)
}

// BasicService posts operations directly and hands redirects back to the
// caller.
type BasicService struct {
	deps Deps
	log  logger.Interface
	used atomic.Bool
}

func NewBasicService(deps Deps) *BasicService {
	if deps.Conn == nil {
		panic("payment: connection cannot be nil")
	}
	return &BasicService{deps: deps, log: logger.OrNop(deps.Logger).Named(BasicServiceName)}
}

func (s *BasicService) Send(ctx context.Context, req OperationRequest) Outcome {
	if !s.used.CompareAndSwap(false, true) {
		return resultOutcome(model.Failure(ErrorInfoFromError(ErrAlreadySent, req.OperationType)))
	}

	charge, err := gateway.NewCharge(req.Links, req.Body)
	if err != nil {
		return resultOutcome(model.Failure(ErrorInfoFromError(err, req.OperationType)))
	}

	s.log.Info("sending operation", "network_code", req.NetworkCode, "operation_type", req.OperationType)
	res, err := s.deps.Execute(ctx, charge)
	return ParseResponse(res, err, req.OperationType)
}

func (s *BasicService) Delete(ctx context.Context, req DeletionRequest) Outcome {
	if !s.used.CompareAndSwap(false, true) {
		return resultOutcome(model.Failure(ErrorInfoFromError(ErrAlreadySent, req.OperationType)))
	}

	del, err := gateway.NewDeleteAccount(req.Links, req.Body)
	if err != nil {
		return resultOutcome(model.Failure(ErrorInfoFromError(err, req.OperationType)))
	}

	s.log.Info("deleting account registration", "operation_type", req.OperationType, "explicit_scope", req.Body != nil)
	res, err := s.deps.Execute(ctx, del)
	if err != nil {
		return resultOutcome(model.Failure(ErrorInfoFromError(err, req.OperationType)))
	}
	return resultOutcome(model.Success(res))
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
