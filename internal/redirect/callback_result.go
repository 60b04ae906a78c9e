package redirect

import (
	"errors"
	"net/url"
	"sort"

	"github.com/yourorg/checkout-orchestrator/internal/interaction"
	"github.com/yourorg/checkout-orchestrator/internal/model"
)

// Query keys the gateway's redirect webapp appends to the callback URL.
const (
	QueryInteractionCode   = "interactionCode"
	QueryInteractionReason = "interactionReason"
)

const (
	callbackResultInfo = "OperationResult received from the mobile-redirect webapp"
	missingResultInfo  = "Missing OperationResult after client-side redirect"
)

// ErrCallbackIncomplete is the cause of a callback that lacks an
// interaction code or reason.
var ErrCallbackIncomplete = errors.New("callback URL doesn't contain interaction code or reason")

// ParseCallback turns a callback URL into the operation outcome it carries.
// Query items other than the interaction become parameters of a GET redirect
// pointing at the received URL. A callback without both interaction items is
// the same missing result a dismissal of operationType produces.
func ParseCallback(u *url.URL, operationType string) model.PaymentResult {
	q := u.Query()
	code, reason := q.Get(QueryInteractionCode), q.Get(QueryInteractionReason)
	if code == "" || reason == "" {
		return missingResult(operationType, ErrCallbackIncomplete)
	}

	delete(q, QueryInteractionCode)
	delete(q, QueryInteractionReason)

	names := make([]string, 0, len(q))
	for name := range q {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]model.Parameter, 0, len(names))
	for _, name := range names {
		params = append(params, model.NewParameter(name, q.Get(name)))
	}

	return model.Success(model.OperationResult{
		ResultInfo:  callbackResultInfo,
		Interaction: interaction.Parse(code, reason),
		Redirect: &model.Redirect{
			URL:        u.String(),
			Method:     model.MethodGET,
			Parameters: params,
		},
	})
}

// DismissedResult is the outcome of a surface closed before any callback.
func DismissedResult(operationType string) model.PaymentResult {
	return missingResult(operationType, nil)
}

func missingResult(operationType string, cause error) model.PaymentResult {
	code := interaction.FailureCodeFor(operationType)
	return model.Failure(model.NewErrorInfo(missingResultInfo,
		interaction.New(code, interaction.ReasonClientsideError), cause))
}
