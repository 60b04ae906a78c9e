package gateway

import (
	"context"
	"net/http"

	"github.com/yourorg/checkout-orchestrator/internal/model"
)

// DeletionBody carries explicit de-registration instructions.
type DeletionBody struct {
	DeleteRegistration *bool `json:"deleteRegistration,omitempty"`
	DeleteRecurrence   *bool `json:"deleteRecurrence,omitempty"`
}

// ChannelRecurring is the LIST channel value that makes the server delete
// the recurring registration when no body is sent.
const ChannelRecurring = "RECURRING"

// DeletionScope names the registrations a DeleteAccount removes.
type DeletionScope struct {
	Registration bool
	Recurrence   bool
}

// InferDeletionScope mirrors the gateway's rule for which registrations a
// DeleteAccount removes:
//
//   - body present, deleteRegistration=true: the account registration
//   - body present, deleteRecurrence=true: the recurring registration
//   - body absent, LIST channel RECURRING: the recurring registration
//   - body absent, any other LIST channel: the account registration
//
// The decision is made server side; the client only predicts it.
func InferDeletionScope(body *DeletionBody, listChannel string) DeletionScope {
	if body != nil {
		return DeletionScope{
			Registration: body.DeleteRegistration != nil && *body.DeleteRegistration,
			Recurrence:   body.DeleteRecurrence != nil && *body.DeleteRecurrence,
		}
	}
	if listChannel == ChannelRecurring {
		return DeletionScope{Recurrence: true}
	}
	return DeletionScope{Registration: true}
}

// DeleteAccount removes registrations of a stored account. A nil body leaves
// the scope to the server.
type DeleteAccount struct {
	url  string
	body *DeletionBody
}

// NewDeleteAccount takes the URL from the account's links["self"].
func NewDeleteAccount(links model.Links, body *DeletionBody) (DeleteAccount, error) {
	u, ok := links.Get(model.LinkSelf)
	if !ok {
		return DeleteAccount{}, &BuildError{Request: "DeleteAccount", Reason: "Links.self is missing in account object"}
	}
	return DeleteAccount{url: u, body: body}, nil
}

func (r DeleteAccount) Name() string        { return "DeleteAccount" }
func (r DeleteAccount) URL() string         { return r.url }
func (r DeleteAccount) Body() *DeletionBody { return r.body }

func (r DeleteAccount) Build(ctx context.Context) (*http.Request, error) {
	if r.url == "" {
		return nil, &BuildError{Request: r.Name(), Reason: "Links.self is missing in account object"}
	}
	if r.body == nil {
		return newJSONRequest(ctx, http.MethodDelete, r.url, nil)
	}
	return newJSONRequest(ctx, http.MethodDelete, r.url, r.body)
}

func (r DeleteAccount) Decode(body []byte) (model.OperationResult, error) {
	return decodeJSON[model.OperationResult](r.Name(), body)
}
