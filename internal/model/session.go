// Package model holds the gateway resources exchanged by the checkout core:
// the session (LIST) resource, its network descriptors, operation results
// and error payloads.
package model

import (
	"github.com/yourorg/checkout-orchestrator/internal/interaction"
)

// Operation types a session can be opened for.
const (
	OperationCharge     = "CHARGE"
	OperationPreset     = "PRESET"
	OperationPayout     = "PAYOUT"
	OperationUpdate     = "UPDATE"
	OperationActivation = "ACTIVATION"
)

// IntegrationMobileNative is the only integration type this client serves.
const IntegrationMobileNative = "MOBILE_NATIVE"

// Link relation names used across resources.
const (
	LinkSelf      = "self"
	LinkOperation = "operation"
	LinkOnSelect  = "onselect"
	LinkRedirect  = "redirect"
	LinkLang      = "lang"
)

// Links maps a relation name to an absolute URL.
type Links map[string]string

// Get returns the URL for rel, reporting whether it is present and non-empty.
func (l Links) Get(rel string) (string, bool) {
	u, ok := l[rel]
	return u, ok && u != ""
}

// RegistrationOption describes whether a network may be registered for
// one-click or recurring use.
type RegistrationOption string

const (
	RegistrationNone                RegistrationOption = "NONE"
	RegistrationOptional            RegistrationOption = "OPTIONAL"
	RegistrationOptionalPreselected RegistrationOption = "OPTIONAL_PRESELECTED"
	RegistrationForced              RegistrationOption = "FORCED"
	RegistrationForcedDisplayed     RegistrationOption = "FORCED_DISPLAYED"
)

// ListResult is the session resource.
type ListResult struct {
	Links           Links                   `json:"links"`
	ResultInfo      string                  `json:"resultInfo"`
	Interaction     interaction.Interaction `json:"interaction"`
	IntegrationType string                  `json:"integrationType"`
	OperationType   string                  `json:"operationType,omitempty"`
	Accounts        []AccountRegistration   `json:"accounts,omitempty"`
	Networks        Networks                `json:"networks"`
	PresetAccount   *PresetAccount          `json:"presetAccount,omitempty"`
	AllowDelete     *bool                   `json:"allowDelete,omitempty"`
	RiskProviders   []ProviderParameters    `json:"riskProviders,omitempty"`
}

type Networks struct {
	Applicable []ApplicableNetwork `json:"applicable"`
}

// ApplicableNetwork is a payment network the customer may pay with.
type ApplicableNetwork struct {
	Code          string             `json:"code"`
	Label         string             `json:"label"`
	Method        string             `json:"method"`
	Grouping      string             `json:"grouping"`
	Registration  RegistrationOption `json:"registration"`
	Recurrence    RegistrationOption `json:"recurrence"`
	Redirect      bool               `json:"redirect"`
	Button        string             `json:"button,omitempty"`
	Selected      *bool              `json:"selected,omitempty"`
	EmptyForm     *bool              `json:"emptyForm,omitempty"`
	InputElements []InputElement     `json:"inputElements,omitempty"`
	Links         Links              `json:"links,omitempty"`
	OperationType string             `json:"operationType"`
	Providers     []string           `json:"providers,omitempty"`
}

// AccountRegistration is an account the customer registered earlier.
type AccountRegistration struct {
	Links         Links          `json:"links"`
	Code          string         `json:"code"`
	Label         string         `json:"label"`
	Method        string         `json:"method"`
	MaskedAccount AccountMask    `json:"maskedAccount"`
	Selected      *bool          `json:"selected,omitempty"`
	EmptyForm     *bool          `json:"emptyForm,omitempty"`
	InputElements []InputElement `json:"inputElements,omitempty"`
	OperationType string         `json:"operationType,omitempty"`
	Providers     []string       `json:"providers,omitempty"`
}

// PresetAccount is the account chosen ahead of time for a PRESET session.
type PresetAccount struct {
	Links            Links        `json:"links"`
	Code             string       `json:"code"`
	Method           string       `json:"method"`
	MaskedAccount    *AccountMask `json:"maskedAccount,omitempty"`
	EmptyForm        bool         `json:"emptyForm"`
	Button           string       `json:"button,omitempty"`
	Redirect         Redirect     `json:"redirect"`
	OperationType    string       `json:"operationType"`
	Deferral         string       `json:"deferral,omitempty"`
	Registered       *bool        `json:"registered,omitempty"`
	AutoRegistration *bool        `json:"autoRegistration,omitempty"`
	AllowRecurrence  *bool        `json:"allowRecurrence,omitempty"`
	Providers        []string     `json:"providers,omitempty"`
}

type AccountMask struct {
	DisplayLabel string `json:"displayLabel,omitempty"`
	HolderName   string `json:"holderName,omitempty"`
	Number       string `json:"number,omitempty"`
	BankCode     string `json:"bankCode,omitempty"`
	ExpiryMonth  *int   `json:"expiryMonth,omitempty"`
	ExpiryYear   *int   `json:"expiryYear,omitempty"`
	IBAN         string `json:"iban,omitempty"`
	BIC          string `json:"bic,omitempty"`
}

type InputElement struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Label string `json:"label,omitempty"`
}
