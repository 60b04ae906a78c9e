// Package risk loads the fraud-prevention providers a session asks for and
// collects their device data for the operation body.
package risk

import (
	"context"
	"sort"
	"sync"

	"github.com/yourorg/checkout-orchestrator/internal/logger"
	"github.com/yourorg/checkout-orchestrator/internal/model"
)

// Provider collects risk data for one provider code.
type Provider interface {
	Collect(ctx context.Context) (map[string]string, error)
}

// Factory builds a Provider from the parameters the session supplies.
type Factory func(params map[string]string) (Provider, error)

// Descriptor registers a Factory under a provider code and type.
type Descriptor struct {
	Code string
	// Type may be empty; it must match the session's providerType exactly.
	Type string
	New  Factory
}

// Registry holds descriptors in registration order.
type Registry struct {
	mu          sync.RWMutex
	descriptors []Descriptor
}

func NewRegistry(descriptors ...Descriptor) *Registry {
	return &Registry{descriptors: append([]Descriptor(nil), descriptors...)}
}

func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors = append(r.descriptors, d)
}

// Lookup returns the first descriptor matching both code and type.
func (r *Registry) Lookup(code, typ string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.descriptors {
		if d.Code == code && d.Type == typ {
			return d, true
		}
	}
	return Descriptor{}, false
}

type collector struct {
	code     string
	typ      string
	provider Provider
}

// Service holds the providers loaded for one session.
type Service struct {
	registry   *Registry
	log        logger.Interface
	collectors []collector
}

func NewService(reg *Registry, log logger.Interface) *Service {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Service{registry: reg, log: logger.OrNop(log).Named("risk")}
}

// Load replaces the loaded providers with one entry per requested provider.
// Unregistered providers and failed initializations keep an entry without
// a provider so the gateway still sees the code.
func (s *Service) Load(requested []model.ProviderParameters) {
	s.collectors = make([]collector, 0, len(requested))
	for _, p := range requested {
		c := collector{code: p.ProviderCode, typ: p.ProviderType}

		d, ok := s.registry.Lookup(p.ProviderCode, p.ProviderType)
		if !ok {
			s.log.Error("risk provider is not registered", "provider_code", p.ProviderCode, "provider_type", p.ProviderType)
			s.collectors = append(s.collectors, c)
			continue
		}

		provider, err := d.New(toMap(p.Parameters))
		if err != nil {
			s.log.Error("failed to initialize risk provider", "provider_code", p.ProviderCode, "error", err)
			s.collectors = append(s.collectors, c)
			continue
		}
		c.provider = provider
		s.collectors = append(s.collectors, c)
	}
}

// Collect returns one ProviderParameters per loaded entry, or nil when
// nothing was requested. A failing provider contributes empty parameters.
func (s *Service) Collect(ctx context.Context) []model.ProviderParameters {
	if len(s.collectors) == 0 {
		return nil
	}
	out := make([]model.ProviderParameters, 0, len(s.collectors))
	for _, c := range s.collectors {
		pp := model.ProviderParameters{ProviderCode: c.code, ProviderType: c.typ, Parameters: []model.Parameter{}}
		if c.provider != nil {
			data, err := c.provider.Collect(ctx)
			if err != nil {
				s.log.Error("unable to collect risk data", "provider_code", c.code, "error", err)
			} else {
				pp.Parameters = toParameters(data)
			}
		}
		out = append(out, pp)
	}
	return out
}

func toMap(params []model.Parameter) map[string]string {
	m := make(map[string]string, len(params))
	for _, p := range params {
		if p.Value != nil {
			m[p.Name] = *p.Value
		}
	}
	return m
}

func toParameters(data map[string]string) []model.Parameter {
	names := make([]string, 0, len(data))
	for k := range data {
		names = append(names, k)
	}
	sort.Strings(names)

	params := make([]model.Parameter, 0, len(names))
	for _, name := range names {
		params = append(params, model.NewParameter(name, data[name]))
	}
	return params
}
