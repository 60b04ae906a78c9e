// Package interaction models the gateway's interaction vocabulary: the
// (code, reason) pair carried by every terminal response. Codes and reasons
// are closed sets with an explicit unrecognized variant, so routing logic can
// switch over them exhaustively instead of comparing raw strings.
package interaction

import (
	"encoding/json"
	"fmt"
)

// Code is the interaction code returned by the gateway.
type Code uint8

const (
	CodeUnrecognized Code = iota
	CodeProceed
	CodeAbort
	CodeTryOtherNetwork
	CodeTryOtherAccount
	CodeRetry
	CodeReload
	CodeVerify
)

var codeNames = [...]string{
	CodeUnrecognized:    "",
	CodeProceed:         "PROCEED",
	CodeAbort:           "ABORT",
	CodeTryOtherNetwork: "TRY_OTHER_NETWORK",
	CodeTryOtherAccount: "TRY_OTHER_ACCOUNT",
	CodeRetry:           "RETRY",
	CodeReload:          "RELOAD",
	CodeVerify:          "VERIFY",
}

// Codes returns every recognized code in declaration order.
func Codes() []Code {
	return []Code{CodeProceed, CodeAbort, CodeTryOtherNetwork, CodeTryOtherAccount, CodeRetry, CodeReload, CodeVerify}
}

// ParseCode maps a wire value to a Code, returning CodeUnrecognized for
// anything outside the vocabulary.
func ParseCode(s string) Code {
	for c, name := range codeNames {
		if name != "" && name == s {
			return Code(c)
		}
	}
	return CodeUnrecognized
}

func (c Code) String() string {
	if int(c) < len(codeNames) && c != CodeUnrecognized {
		return codeNames[c]
	}
	return "UNRECOGNIZED"
}

// Reason is the interaction reason returned by the gateway.
type Reason uint8

const (
	ReasonUnrecognized Reason = iota
	ReasonOK
	ReasonPending
	ReasonTrusted
	ReasonStrongAuthentication
	ReasonDeclined
	ReasonExpired
	ReasonExceedsLimit
	ReasonTemporaryFailure
	// ReasonUnknown is the gateway's own UNKNOWN reason, not the fallback.
	ReasonUnknown
	ReasonNetworkFailure
	ReasonBlacklisted
	ReasonBlocked
	ReasonSystemFailure
	ReasonInvalidAccount
	ReasonFraud
	ReasonAdditionalNetworks
	ReasonInvalidRequest
	ReasonScheduled
	ReasonNoNetworks
	ReasonDuplicateOperation
	ReasonChargeback
	ReasonRiskDetected
	ReasonCustomerAbort
	ReasonExpiredSession
	ReasonExpiredAccount
	ReasonAccountNotActivated
	ReasonTrustedCustomer
	ReasonUnknownCustomer
	ReasonActivated
	ReasonUpdated
	ReasonTakeAction
	ReasonCommunicationFailure
	ReasonClientsideError
)

var reasonNames = [...]string{
	ReasonUnrecognized:         "",
	ReasonOK:                   "OK",
	ReasonPending:              "PENDING",
	ReasonTrusted:              "TRUSTED",
	ReasonStrongAuthentication: "STRONG_AUTHENTICATION",
	ReasonDeclined:             "DECLINED",
	ReasonExpired:              "EXPIRED",
	ReasonExceedsLimit:         "EXCEEDS_LIMIT",
	ReasonTemporaryFailure:     "TEMPORARY_FAILURE",
	ReasonUnknown:              "UNKNOWN",
	ReasonNetworkFailure:       "NETWORK_FAILURE",
	ReasonBlacklisted:          "BLACKLISTED",
	ReasonBlocked:              "BLOCKED",
	ReasonSystemFailure:        "SYSTEM_FAILURE",
	ReasonInvalidAccount:       "INVALID_ACCOUNT",
	ReasonFraud:                "FRAUD",
	ReasonAdditionalNetworks:   "ADDITIONAL_NETWORKS",
	ReasonInvalidRequest:       "INVALID_REQUEST",
	ReasonScheduled:            "SCHEDULED",
	ReasonNoNetworks:           "NO_NETWORKS",
	ReasonDuplicateOperation:   "DUPLICATE_OPERATION",
	ReasonChargeback:           "CHARGEBACK",
	ReasonRiskDetected:         "RISK_DETECTED",
	ReasonCustomerAbort:        "CUSTOMER_ABORT",
	ReasonExpiredSession:       "EXPIRED_SESSION",
	ReasonExpiredAccount:       "EXPIRED_ACCOUNT",
	ReasonAccountNotActivated:  "ACCOUNT_NOT_ACTIVATED",
	ReasonTrustedCustomer:      "TRUSTED_CUSTOMER",
	ReasonUnknownCustomer:      "UNKNOWN_CUSTOMER",
	ReasonActivated:            "ACTIVATED",
	ReasonUpdated:              "UPDATED",
	ReasonTakeAction:           "TAKE_ACTION",
	ReasonCommunicationFailure: "COMMUNICATION_FAILURE",
	ReasonClientsideError:      "CLIENTSIDE_ERROR",
}

// ParseReason maps a wire value to a Reason, returning ReasonUnrecognized for
// anything outside the vocabulary.
func ParseReason(s string) Reason {
	for r, name := range reasonNames {
		if name != "" && name == s {
			return Reason(r)
		}
	}
	return ReasonUnrecognized
}

func (r Reason) String() string {
	if int(r) < len(reasonNames) && r != ReasonUnrecognized {
		return reasonNames[r]
	}
	return "UNRECOGNIZED"
}

// Interaction is the (code, reason) pair every gateway response carries.
// Values outside the vocabulary are kept verbatim so they survive a
// decode/encode round trip.
type Interaction struct {
	Code   Code
	Reason Reason

	rawCode   string
	rawReason string
}

// New returns an Interaction for a recognized code and reason.
func New(code Code, reason Reason) Interaction {
	return Interaction{Code: code, Reason: reason}
}

// Parse builds an Interaction from wire strings.
func Parse(code, reason string) Interaction {
	i := Interaction{Code: ParseCode(code), Reason: ParseReason(reason)}
	if i.Code == CodeUnrecognized {
		i.rawCode = code
	}
	if i.Reason == ReasonUnrecognized {
		i.rawReason = reason
	}
	return i
}

// CodeString returns the wire value of the code.
func (i Interaction) CodeString() string {
	if i.Code == CodeUnrecognized {
		return i.rawCode
	}
	return i.Code.String()
}

// ReasonString returns the wire value of the reason.
func (i Interaction) ReasonString() string {
	if i.Reason == ReasonUnrecognized {
		return i.rawReason
	}
	return i.Reason.String()
}

func (i Interaction) String() string {
	return fmt.Sprintf("%s/%s", i.CodeString(), i.ReasonString())
}

type wireInteraction struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func (i Interaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireInteraction{Code: i.CodeString(), Reason: i.ReasonString()})
}

func (i *Interaction) UnmarshalJSON(data []byte) error {
	var w wireInteraction
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*i = Parse(w.Code, w.Reason)
	return nil
}

// FailureCodeFor returns the code used for client-side failures of the given
// operation type: ABORT for PRESET, UPDATE and ACTIVATION, VERIFY otherwise.
func FailureCodeFor(operationType string) Code {
	switch operationType {
	case "PRESET", "UPDATE", "ACTIVATION":
		return CodeAbort
	default:
		return CodeVerify
	}
}
