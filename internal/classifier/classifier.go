// Package classifier decides what a caller does with an operation outcome:
// stay on the input and retry, report a communication failure, or bubble
// the outcome up as final.
package classifier

import (
	"fmt"

	"github.com/yourorg/checkout-orchestrator/internal/interaction"
	"github.com/yourorg/checkout-orchestrator/internal/logger"
	"github.com/yourorg/checkout-orchestrator/internal/metrics"
	"github.com/yourorg/checkout-orchestrator/internal/model"
	"github.com/yourorg/checkout-orchestrator/internal/policy"
)

// Route is the caller-facing decision for one outcome.
type Route int

const (
	// RouteBubbleUp hands the outcome to the caller as final.
	RouteBubbleUp Route = iota
	// RouteRetryInPlace keeps the input active and shows the result inline.
	RouteRetryInPlace
	// RouteCommunicationFailure reports a transient connectivity failure.
	RouteCommunicationFailure
)

var routeNames = map[Route]string{
	RouteBubbleUp:             "bubble_up",
	RouteRetryInPlace:         "retry_in_place",
	RouteCommunicationFailure: "communication_failure",
}

func (r Route) String() string {
	if s, ok := routeNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Route(%d)", int(r))
}

// ParseRoute accepts the names printed by String.
func ParseRoute(s string) (Route, error) {
	for r, name := range routeNames {
		if name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown route %q", s)
}

// Flow tells callers which operation produced an outcome.
type Flow int

const (
	FlowCharge Flow = iota
	FlowUpdate
	FlowDelete
)

func (f Flow) String() string {
	switch f {
	case FlowCharge:
		return "CHARGE"
	case FlowUpdate:
		return "UPDATE"
	case FlowDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("Flow(%d)", int(f))
	}
}

// FlowFor maps a session operation type to its flow. Deletions are not an
// operation type and must be tagged by the caller.
func FlowFor(operationType string) Flow {
	if operationType == model.OperationUpdate {
		return FlowUpdate
	}
	return FlowCharge
}

// Decision is a classified outcome.
type Decision struct {
	Flow        Flow
	Route       Route
	Interaction interaction.Interaction
	ResultInfo  string
	Result      model.PaymentResult
	// Rule names the policy rule that chose Route, if any.
	Rule string
}

// RouteFor is the default routing table. A COMMUNICATION_FAILURE reason
// wins over every code.
func RouteFor(i interaction.Interaction) Route {
	if i.Reason == interaction.ReasonCommunicationFailure {
		return RouteCommunicationFailure
	}
	switch i.Code {
	case interaction.CodeRetry:
		return RouteRetryInPlace
	case interaction.CodeProceed,
		interaction.CodeAbort,
		interaction.CodeTryOtherNetwork,
		interaction.CodeTryOtherAccount,
		interaction.CodeReload,
		interaction.CodeVerify,
		interaction.CodeUnrecognized:
		return RouteBubbleUp
	default:
		return RouteBubbleUp
	}
}

// Classify applies the default table.
func Classify(flow Flow, res model.PaymentResult) Decision {
	i := res.Interaction()
	return Decision{
		Flow:        flow,
		Route:       RouteFor(i),
		Interaction: i,
		ResultInfo:  res.ResultInfo(),
		Result:      res,
	}
}

// Classifier applies the default table and then operator rules. Rules are
// consulted only for outcomes the table bubbles up, so communication
// failures and RETRY keep their routes.
type Classifier struct {
	rules *policy.Enforcer
	log   logger.Interface
}

// New accepts a nil enforcer for the default table alone.
func New(rules *policy.Enforcer, log logger.Interface) *Classifier {
	return &Classifier{rules: rules, log: logger.OrNop(log).Named("classifier")}
}

// Classify classifies res for flow. A failing rule is logged and the
// default route stands.
func (c *Classifier) Classify(flow Flow, operationType string, res model.PaymentResult) Decision {
	d := Classify(flow, res)

	if d.Route == RouteBubbleUp && c.rules.Len() > 0 {
		pd, err := c.rules.Evaluate(map[string]any{
			"code":          d.Interaction.CodeString(),
			"reason":        d.Interaction.ReasonString(),
			"operationType": operationType,
			"flow":          flow.String(),
			"success":       res.IsSuccess(),
		})
		switch {
		case err != nil:
			c.log.Warn("routing rule failed, using default route", "error", err, "interaction", d.Interaction.String())
		case pd.Matched:
			route, perr := ParseRoute(pd.Route)
			if perr != nil {
				c.log.Warn("routing rule names an unknown route", "rule", pd.Rule, "error", perr)
				break
			}
			d.Route = route
			d.Rule = pd.Rule
		}
	}

	metrics.ClassifierRoutesTotal().WithLabelValues(d.Route.String()).Inc()
	c.log.Debug("outcome classified",
		"flow", flow.String(),
		"operation_type", operationType,
		"interaction", d.Interaction.String(),
		"route", d.Route.String(),
	)
	return d
}
