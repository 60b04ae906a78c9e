package payment

import (
	"github.com/yourorg/checkout-orchestrator/internal/logger"
)

// SupportFunc is a pure capability predicate.
type SupportFunc func(networkCode, paymentMethod string, providers []string) bool

// ServiceDescriptor registers one service variant.
type ServiceDescriptor struct {
	Name     string
	Supports SupportFunc
	New      func(Deps) Service
}

// Registry holds service descriptors in registration order. The basic
// service is always last, so lookups fall through to it.
type Registry struct {
	deps        Deps
	descriptors []ServiceDescriptor
}

// NewRegistry registers descriptors in the given order followed by the
// basic service.
func NewRegistry(deps Deps, descriptors ...ServiceDescriptor) *Registry {
	if deps.Conn == nil {
		panic("payment: connection cannot be nil")
	}
	deps.Logger = logger.OrNop(deps.Logger)
	all := make([]ServiceDescriptor, 0, len(descriptors)+1)
	all = append(all, descriptors...)
	all = append(all, BasicServiceDescriptor())
	return &Registry{deps: deps, descriptors: all}
}

// Lookup returns the first descriptor whose predicate accepts the network.
func (r *Registry) Lookup(networkCode, paymentMethod string, providers []string) (ServiceDescriptor, bool) {
	for _, d := range r.descriptors {
		if d.Supports(networkCode, paymentMethod, providers) {
			return d, true
		}
	}
	return ServiceDescriptor{}, false
}

func (r *Registry) IsSupported(networkCode, paymentMethod string, providers []string) bool {
	_, ok := r.Lookup(networkCode, paymentMethod, providers)
	return ok
}

// CreateService instantiates the first matching service.
func (r *Registry) CreateService(networkCode, paymentMethod string, providers []string) (Service, error) {
	d, ok := r.Lookup(networkCode, paymentMethod, providers)
	if !ok {
		return nil, ErrServiceNotFound
	}
	r.deps.Logger.Debug("payment service selected", "service", d.Name, "network_code", networkCode, "payment_method", paymentMethod)
	return d.New(r.deps), nil
}

// Names lists registered services in lookup order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.descriptors))
	for i, d := range r.descriptors {
		names[i] = d.Name
	}
	return names
}

// RequireProvider accepts a provider list only when it is non-empty, contains
// code, and has code first when several providers are declared.
func RequireProvider(code string, providers []string) bool {
	if len(providers) == 0 {
		return false
	}
	found := false
	for _, p := range providers {
		if p == code {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	return len(providers) == 1 || providers[0] == code
}
