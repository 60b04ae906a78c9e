package model

import (
	"encoding/json"
	"fmt"

	"github.com/yourorg/checkout-orchestrator/internal/interaction"
)

// Parameter is one name/value pair inside a provider or redirect bundle.
type Parameter struct {
	Name  string  `json:"name"`
	Value *string `json:"value,omitempty"`
}

// NewParameter returns a Parameter with a non-nil value.
func NewParameter(name, value string) Parameter {
	return Parameter{Name: name, Value: &value}
}

// ProviderParameters is an opaque bundle passed to or received from a
// third-party payment or risk provider.
type ProviderParameters struct {
	ProviderCode string      `json:"providerCode"`
	ProviderType string      `json:"providerType,omitempty"`
	Parameters   []Parameter `json:"parameters,omitempty"`
}

// Lookup returns the value of the named parameter if it is present and set.
func (p ProviderParameters) Lookup(name string) (string, bool) {
	for _, param := range p.Parameters {
		if param.Name == name && param.Value != nil {
			return *param.Value, true
		}
	}
	return "", false
}

// Redirect methods.
const (
	MethodGET  = "GET"
	MethodPOST = "POST"
)

// Redirect instructs the client to open an external surface.
type Redirect struct {
	URL            string      `json:"url"`
	Method         string      `json:"method"`
	Parameters     []Parameter `json:"parameters,omitempty"`
	SuppressIFrame *bool       `json:"suppressIFrame,omitempty"`
	Type           string      `json:"type,omitempty"`
}

// OperationResult is the gateway's successful response to an operation.
type OperationResult struct {
	ResultInfo       string                  `json:"resultInfo"`
	Interaction      interaction.Interaction `json:"interaction"`
	Redirect         *Redirect               `json:"redirect,omitempty"`
	ProviderResponse *ProviderParameters     `json:"providerResponse,omitempty"`
	Links            Links                   `json:"links,omitempty"`
}

// ErrorInfo is a failure outcome, either decoded from a non-OK gateway
// response or synthesized on the client.
type ErrorInfo struct {
	ResultInfo  string                  `json:"resultInfo"`
	Interaction interaction.Interaction `json:"interaction"`

	cause error
}

// NewErrorInfo synthesizes a client-side ErrorInfo. cause may be nil.
func NewErrorInfo(resultInfo string, i interaction.Interaction, cause error) *ErrorInfo {
	return &ErrorInfo{ResultInfo: resultInfo, Interaction: i, cause: cause}
}

// NewClientSideError wraps err as ABORT/CLIENTSIDE_ERROR.
func NewClientSideError(err error) *ErrorInfo {
	return NewErrorInfo(err.Error(), interaction.New(interaction.CodeAbort, interaction.ReasonClientsideError), err)
}

func (e *ErrorInfo) Error() string {
	if e.ResultInfo == "" {
		return fmt.Sprintf("gateway interaction %s", e.Interaction)
	}
	return fmt.Sprintf("gateway interaction %s: %s", e.Interaction, e.ResultInfo)
}

func (e *ErrorInfo) Unwrap() error { return e.cause }

// Cause returns the client-side error that produced this ErrorInfo, if any.
func (e *ErrorInfo) Cause() error { return e.cause }

// PaymentResult is the terminal outcome of one operation attempt. It holds
// exactly one of an OperationResult or an ErrorInfo.
type PaymentResult struct {
	operationResult *OperationResult
	errorInfo       *ErrorInfo
}

func Success(r OperationResult) PaymentResult {
	return PaymentResult{operationResult: &r}
}

func Failure(e *ErrorInfo) PaymentResult {
	if e == nil {
		panic("model: Failure called with nil ErrorInfo")
	}
	return PaymentResult{errorInfo: e}
}

func (p PaymentResult) OperationResult() (*OperationResult, bool) {
	return p.operationResult, p.operationResult != nil
}

func (p PaymentResult) ErrorInfo() (*ErrorInfo, bool) {
	return p.errorInfo, p.errorInfo != nil
}

func (p PaymentResult) IsSuccess() bool { return p.operationResult != nil }

func (p PaymentResult) Interaction() interaction.Interaction {
	if p.operationResult != nil {
		return p.operationResult.Interaction
	}
	if p.errorInfo != nil {
		return p.errorInfo.Interaction
	}
	return interaction.Interaction{}
}

func (p PaymentResult) ResultInfo() string {
	if p.operationResult != nil {
		return p.operationResult.ResultInfo
	}
	if p.errorInfo != nil {
		return p.errorInfo.ResultInfo
	}
	return ""
}

// Cause returns the underlying client-side error of a failure.
func (p PaymentResult) Cause() error {
	if p.errorInfo != nil {
		return p.errorInfo.cause
	}
	return nil
}

func (p PaymentResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		OperationResult *OperationResult `json:"operationResult,omitempty"`
		ErrorInfo       *ErrorInfo       `json:"errorInfo,omitempty"`
	}{p.operationResult, p.errorInfo})
}
