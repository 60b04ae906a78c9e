package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/yourorg/checkout-orchestrator/internal/model"
)

// MediaType is sent as both Content-Type and Accept on every gateway call.
const MediaType = "application/vnd.optile.payment.enterprise-v1-extensible+json"

// Request is a typed gateway request that knows its wire form and the
// response type it expects.
type Request[T any] interface {
	Name() string
	Build(ctx context.Context) (*http.Request, error)
	Decode(body []byte) (T, error)
}

func newJSONRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

func decodeJSON[T any](name string, body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, &DecodeError{Request: name, Err: err}
	}
	return v, nil
}

// GetListResult fetches the session resource from its self link.
type GetListResult struct {
	URL string
}

func (r GetListResult) Name() string { return "GetListResult" }

func (r GetListResult) Build(ctx context.Context) (*http.Request, error) {
	if r.URL == "" {
		return nil, &BuildError{Request: r.Name(), Reason: "payment session URL is empty"}
	}
	return newJSONRequest(ctx, http.MethodGet, r.URL, nil)
}

func (r GetListResult) Decode(body []byte) (model.ListResult, error) {
	return decodeJSON[model.ListResult](r.Name(), body)
}

// BrowserData describes the client environment for 3-D Secure risk checks.
type BrowserData struct {
	JavaEnabled  *bool  `json:"javaEnabled,omitempty"`
	Language     string `json:"language,omitempty"`
	ColorDepth   *int   `json:"colorDepth,omitempty"`
	TimeZone     string `json:"timezone,omitempty"`
	ScreenHeight *int   `json:"browserScreenHeight,omitempty"`
	ScreenWidth  *int   `json:"browserScreenWidth,omitempty"`
}

// OperationBody is the form payload of a Charge.
type OperationBody struct {
	Account          map[string]string          `json:"account,omitempty"`
	AutoRegistration *bool                      `json:"autoRegistration,omitempty"`
	AllowRecurrence  *bool                      `json:"allowRecurrence,omitempty"`
	Checkboxes       map[string]bool            `json:"checkboxes,omitempty"`
	ProviderRequest  *model.ProviderParameters  `json:"providerRequest,omitempty"`
	ProviderRequests []model.ProviderParameters `json:"providerRequests,omitempty"`
	BrowserData      *BrowserData               `json:"browserData,omitempty"`
}

// Charge submits payment instrument data to a network's operation link.
type Charge struct {
	url  string
	body OperationBody
}

// NewCharge takes the URL from links["operation"].
func NewCharge(links model.Links, body OperationBody) (Charge, error) {
	u, ok := links.Get(model.LinkOperation)
	if !ok {
		return Charge{}, &BuildError{Request: "Charge", Reason: "links.operation is missing"}
	}
	return Charge{url: u, body: body}, nil
}

func (r Charge) Name() string        { return "Charge" }
func (r Charge) URL() string         { return r.url }
func (r Charge) Body() OperationBody { return r.body }

func (r Charge) Build(ctx context.Context) (*http.Request, error) {
	if r.url == "" {
		return nil, &BuildError{Request: r.Name(), Reason: "links.operation is missing"}
	}
	return newJSONRequest(ctx, http.MethodPost, r.url, r.body)
}

func (r Charge) Decode(body []byte) (model.OperationResult, error) {
	return decodeJSON[model.OperationResult](r.Name(), body)
}

// OnSelect is the empty-body handshake some networks need before they can
// return redirect or tokenization parameters.
type OnSelect struct {
	url string
}

// NewOnSelect takes the URL from links["onselect"], falling back to
// links["operation"].
func NewOnSelect(links model.Links) (OnSelect, error) {
	if u, ok := links.Get(model.LinkOnSelect); ok {
		return OnSelect{url: u}, nil
	}
	if u, ok := links.Get(model.LinkOperation); ok {
		return OnSelect{url: u}, nil
	}
	return OnSelect{}, &BuildError{Request: "OnSelect", Reason: "links.onselect and links.operation are missing"}
}

func (r OnSelect) Name() string { return "OnSelect" }
func (r OnSelect) URL() string  { return r.url }

func (r OnSelect) Build(ctx context.Context) (*http.Request, error) {
	if r.url == "" {
		return nil, &BuildError{Request: r.Name(), Reason: "links.onselect is missing"}
	}
	return newJSONRequest(ctx, http.MethodPost, r.url, struct{}{})
}

func (r OnSelect) Decode(body []byte) (model.OperationResult, error) {
	return decodeJSON[model.OperationResult](r.Name(), body)
}
