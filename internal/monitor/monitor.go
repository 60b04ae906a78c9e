// Package monitor checks gateway payloads against their JSON contracts
// before they are decoded.
package monitor

import (
	"context"
	"embed"
	"fmt"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/yourorg/checkout-orchestrator/internal/gateway"
)

//go:embed schemas/*.json
var schemas embed.FS

// ContractMonitor validates documents against one JSON schema.
type ContractMonitor struct {
	name   string
	schema *gojsonschema.Schema
}

// NewContractMonitor compiles a schema document.
func NewContractMonitor(name string, schema []byte) (*ContractMonitor, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("error loading or compiling schema %s: %w", name, err)
	}
	return &ContractMonitor{name: name, schema: s}, nil
}

// ListResultContract validates session resources.
func ListResultContract() *ContractMonitor { return mustEmbedded("list_result") }

// OperationResultContract validates operation responses.
func OperationResultContract() *ContractMonitor { return mustEmbedded("operation_result") }

func mustEmbedded(name string) *ContractMonitor {
	data, err := schemas.ReadFile("schemas/" + name + ".json")
	if err != nil {
		panic(err)
	}
	cm, err := NewContractMonitor(name, data)
	if err != nil {
		panic(err)
	}
	return cm
}

func (cm *ContractMonitor) Name() string { return cm.name }

// Validate reports whether body satisfies the schema, with one message per
// violation when it does not.
func (cm *ContractMonitor) Validate(body []byte) (bool, []string, error) {
	result, err := cm.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return false, nil, fmt.Errorf("error during validation: %w", err)
	}
	if result.Valid() {
		return true, nil, nil
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return false, errs, nil
}

// FormatErrors joins violations into a single message.
func FormatErrors(validationErrors []string) string {
	if len(validationErrors) == 0 {
		return ""
	}
	return "Validation errors: " + strings.Join(validationErrors, "; ")
}

// ContractError is returned when a response body breaks its contract.
type ContractError struct {
	Contract   string
	Violations []string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("gateway response violates %s contract. %s", e.Contract, FormatErrors(e.Violations))
}

// Checked wraps a gateway request so its response is validated before
// decoding.
func Checked[T any](req gateway.Request[T], cm *ContractMonitor) gateway.Request[T] {
	if cm == nil {
		return req
	}
	return checkedRequest[T]{inner: req, cm: cm}
}

type checkedRequest[T any] struct {
	inner gateway.Request[T]
	cm    *ContractMonitor
}

func (r checkedRequest[T]) Name() string { return r.inner.Name() }

func (r checkedRequest[T]) Build(ctx context.Context) (*http.Request, error) {
	return r.inner.Build(ctx)
}

func (r checkedRequest[T]) Decode(body []byte) (T, error) {
	var zero T
	ok, violations, err := r.cm.Validate(body)
	if err != nil {
		return zero, &gateway.DecodeError{Request: r.inner.Name(), Err: err}
	}
	if !ok {
		return zero, &ContractError{Contract: r.cm.name, Violations: violations}
	}
	return r.inner.Decode(body)
}
