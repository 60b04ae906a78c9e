package payment

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/yourorg/checkout-orchestrator/internal/gateway"
	"github.com/yourorg/checkout-orchestrator/internal/interaction"
	"github.com/yourorg/checkout-orchestrator/internal/model"
)

// Redirect types this client opens. Other redirect instructions are
// returned to the caller untouched.
var supportedRedirectTypes = []string{"PROVIDER", "3DS2-HANDLER"}

// ErrorInfoFromError converts any failure to an ErrorInfo. Gateway ErrorInfo
// passes through; anything else gets the failure code of operationType and a
// COMMUNICATION_FAILURE or CLIENTSIDE_ERROR reason.
func ErrorInfoFromError(err error, operationType string) *model.ErrorInfo {
	var info *model.ErrorInfo
	if errors.As(err, &info) {
		return info
	}

	reason := interaction.ReasonClientsideError
	if gateway.IsRecoverable(err) {
		reason = interaction.ReasonCommunicationFailure
	}
	code := interaction.FailureCodeFor(operationType)
	return model.NewErrorInfo(err.Error(), interaction.New(code, reason), err)
}

// ParseResponse turns an executor outcome into a service Outcome.
func ParseResponse(res model.OperationResult, err error, operationType string) Outcome {
	if err != nil {
		return resultOutcome(model.Failure(ErrorInfoFromError(err, operationType)))
	}

	if res.Redirect == nil || !contains(supportedRedirectTypes, res.Redirect.Type) {
		return resultOutcome(model.Success(res))
	}

	target, err := BuildRedirectURL(*res.Redirect, res.Links)
	if err != nil {
		code := interaction.FailureCodeFor(operationType)
		info := model.NewErrorInfo(err.Error(), interaction.New(code, interaction.ReasonClientsideError), err)
		return resultOutcome(model.Failure(info))
	}
	return redirectOutcome(target, operationType)
}

// BuildRedirectURL returns the URL to open for a redirect instruction. GET
// redirects carry their parameters as query items; POST redirects use the
// result's links["redirect"].
func BuildRedirectURL(r model.Redirect, links model.Links) (string, error) {
	switch r.Method {
	case model.MethodPOST:
		if len(links) == 0 {
			return "", errors.New("redirect method is POST but OperationResult's links are empty")
		}
		u, ok := links.Get(model.LinkRedirect)
		if !ok {
			return "", errors.New("redirect method is POST but OperationResult's links don't contain redirect key")
		}
		return u, nil
	case model.MethodGET, "":
		u, err := url.Parse(r.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return "", fmt.Errorf("incorrect redirect url provided: %q", r.URL)
		}
		if len(r.Parameters) > 0 {
			q := u.Query()
			for _, p := range r.Parameters {
				v := ""
				if p.Value != nil {
					v = *p.Value
				}
				q.Add(p.Name, v)
			}
			u.RawQuery = q.Encode()
		}
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported redirect method %q", r.Method)
	}
}
