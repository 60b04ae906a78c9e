// Package policy evaluates operator-supplied routing rules. Each rule is a
// govaluate expression over the classified interaction; the first rule that
// evaluates to true names the route to take.
package policy

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// Rule is one routing override.
type Rule struct {
	Name       string
	Expression string
	Route      string
}

type compiledRule struct {
	Rule
	expr *govaluate.EvaluableExpression
}

// Decision is the outcome of Evaluate. Matched is false when no rule
// applied.
type Decision struct {
	Matched bool
	Rule    string
	Route   string
}

// Enforcer holds compiled rules in evaluation order.
type Enforcer struct {
	rules []compiledRule
}

// NewEnforcer compiles rules. Any empty or invalid expression fails the
// whole set.
func NewEnforcer(rules []Rule) (*Enforcer, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.Expression == "" {
			return nil, fmt.Errorf("policy rule '%s' has an empty expression", r.Name)
		}
		if r.Route == "" {
			return nil, fmt.Errorf("policy rule '%s' has no route", r.Name)
		}
		expr, err := govaluate.NewEvaluableExpression(r.Expression)
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule '%s': %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{Rule: r, expr: expr})
	}
	return &Enforcer{rules: compiled}, nil
}

// Len reports the number of compiled rules. A nil Enforcer has none.
func (e *Enforcer) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}

// Evaluate returns the route of the first rule whose expression is true.
// A rule that references a missing parameter or does not yield a boolean
// is an error.
func (e *Enforcer) Evaluate(params map[string]any) (Decision, error) {
	if e == nil {
		return Decision{}, nil
	}
	for _, r := range e.rules {
		out, err := r.expr.Evaluate(params)
		if err != nil {
			return Decision{}, fmt.Errorf("evaluate rule '%s': %w", r.Name, err)
		}
		matched, ok := out.(bool)
		if !ok {
			return Decision{}, fmt.Errorf("rule '%s' did not evaluate to a boolean (got %T)", r.Name, out)
		}
		if matched {
			return Decision{Matched: true, Rule: r.Name, Route: r.Route}, nil
		}
	}
	return Decision{}, nil
}
