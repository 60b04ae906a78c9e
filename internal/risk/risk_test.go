package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/checkout-orchestrator/internal/model"
)

type staticProvider struct {
	data map[string]string
	err  error
}

func (p staticProvider) Collect(context.Context) (map[string]string, error) { return p.data, p.err }

func deviceProvider(params map[string]string) (Provider, error) {
	return staticProvider{data: map[string]string{
		"deviceId":  "dev-" + params["merchantId"],
		"sessionId": "S1",
	}}, nil
}

func TestService_CollectsPerRequestedProvider(t *testing.T) {
	reg := NewRegistry(Descriptor{Code: "DEVICE", Type: "RISK", New: deviceProvider})
	svc := NewService(reg, nil)

	svc.Load([]model.ProviderParameters{
		{ProviderCode: "DEVICE", ProviderType: "RISK", Parameters: []model.Parameter{model.NewParameter("merchantId", "M7")}},
		{ProviderCode: "UNKNOWN", ProviderType: "RISK"},
	})
	got := svc.Collect(context.Background())

	require.Len(t, got, 2)
	assert.Equal(t, "DEVICE", got[0].ProviderCode)
	require.Len(t, got[0].Parameters, 2)
	v, ok := got[0].Lookup("deviceId")
	require.True(t, ok)
	assert.Equal(t, "dev-M7", v)
	assert.Equal(t, "deviceId", got[0].Parameters[0].Name)

	assert.Equal(t, "UNKNOWN", got[1].ProviderCode)
	assert.Empty(t, got[1].Parameters)
	assert.NotNil(t, got[1].Parameters)
}

func TestService_TypeMustMatch(t *testing.T) {
	reg := NewRegistry(Descriptor{Code: "DEVICE", Type: "RISK", New: deviceProvider})
	_, ok := reg.Lookup("DEVICE", "")
	assert.False(t, ok)

	reg.Register(Descriptor{Code: "DEVICE", New: deviceProvider})
	_, ok = reg.Lookup("DEVICE", "")
	assert.True(t, ok)
}

func TestService_FailuresYieldEmptyParameters(t *testing.T) {
	reg := NewRegistry(
		Descriptor{Code: "BROKEN_INIT", New: func(map[string]string) (Provider, error) { return nil, errors.New("bad key") }},
		Descriptor{Code: "BROKEN_COLLECT", New: func(map[string]string) (Provider, error) {
			return staticProvider{err: errors.New("sensor unavailable")}, nil
		}},
	)
	svc := NewService(reg, nil)
	svc.Load([]model.ProviderParameters{{ProviderCode: "BROKEN_INIT"}, {ProviderCode: "BROKEN_COLLECT"}})

	got := svc.Collect(context.Background())
	require.Len(t, got, 2)
	assert.Empty(t, got[0].Parameters)
	assert.Empty(t, got[1].Parameters)
}

func TestService_NothingRequested(t *testing.T) {
	svc := NewService(nil, nil)
	svc.Load(nil)
	assert.Nil(t, svc.Collect(context.Background()))
}

func TestService_LoadReplacesPrevious(t *testing.T) {
	reg := NewRegistry(Descriptor{Code: "DEVICE", New: deviceProvider})
	svc := NewService(reg, nil)
	svc.Load([]model.ProviderParameters{{ProviderCode: "DEVICE"}, {ProviderCode: "DEVICE"}})
	svc.Load([]model.ProviderParameters{{ProviderCode: "DEVICE"}})
	assert.Len(t, svc.Collect(context.Background()), 1)
}
