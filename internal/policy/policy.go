// Package policy flags approved payments for manual review using rules
// written as govaluate expressions over the parsed gateway record.
package policy

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/Knetic/govaluate"

	"github.com/yourorg/sips-gateway/internal/protocol"
)

// PolicyDecision represents the outcome of a policy evaluation.
type PolicyDecision struct {
	ReviewRequired bool   `json:"review_required"`
	Reason         string `json:"reason,omitempty"`
	RuleID         string `json:"rule_id,omitempty"`
}

// PolicyRule is a boolean expression and the decision taken when it holds.
// Lower Priority values are evaluated first.
type PolicyRule struct {
	ID         string
	Expression string
	Priority   int
	Decision   PolicyDecision
}

type compiledRule struct {
	PolicyRule
	expr *govaluate.EvaluableExpression
}

// DefaultRules flag records the gateway scored as risky, failed CVV checks and
// large amounts.
var DefaultRules = []PolicyRule{
	{
		ID: "risky_score_color", Expression: "score_color == 'RED' || score_color == 'BLACK'", Priority: 1,
		Decision: PolicyDecision{ReviewRequired: true, Reason: "risk score color"},
	},
	{
		ID: "high_score_value", Expression: "num(score_value) > 80", Priority: 2,
		Decision: PolicyDecision{ReviewRequired: true, Reason: "risk score value above 80"},
	},
	{
		ID: "cvv_incorrect", Expression: "cvv_response_code == '4E'", Priority: 3,
		Decision: PolicyDecision{ReviewRequired: true, Reason: "card verification value incorrect"},
	},
	{
		ID: "large_amount", Expression: "num(amount) >= 500000", Priority: 4,
		Decision: PolicyDecision{ReviewRequired: true, Reason: "amount above review threshold"},
	},
}

var numericPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// functions available to rule expressions. num(x) yields x as a number, 0
// when x is empty or not numeric.
var functions = map[string]govaluate.ExpressionFunction{
	"num": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("num expects 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case float64:
			return v, nil
		case string:
			if f, ok := parseNumber(v); ok {
				return f, nil
			}
		}
		return 0.0, nil
	},
}

// RiskPolicyEnforcer evaluates compiled rules in priority order.
type RiskPolicyEnforcer struct {
	rules []compiledRule
}

// NewRiskPolicyEnforcer compiles rules. Any rule that fails to compile makes
// the whole set invalid.
func NewRiskPolicyEnforcer(rules []PolicyRule) (*RiskPolicyEnforcer, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.Expression == "" {
			return nil, fmt.Errorf("policy rule ID '%s' has an empty expression", r.ID)
		}
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(r.Expression, functions)
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule ID '%s': %w", r.ID, err)
		}
		compiled = append(compiled, compiledRule{PolicyRule: r, expr: expr})
	}
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].Priority < compiled[j].Priority
	})
	return &RiskPolicyEnforcer{rules: compiled}, nil
}

// Evaluate returns the decision of the first matching rule. With no match the
// record needs no review. Every record field is available to expressions;
// numeric-looking values are numbers, everything else is a string.
func (e *RiskPolicyEnforcer) Evaluate(data protocol.ResponseData) (PolicyDecision, error) {
	params := Parameters(data)
	for _, r := range e.rules {
		result, err := r.expr.Evaluate(params)
		if err != nil {
			return PolicyDecision{}, fmt.Errorf("failed to evaluate rule ID '%s': %w", r.ID, err)
		}
		matched, ok := result.(bool)
		if !ok {
			return PolicyDecision{}, fmt.Errorf("rule ID '%s' did not evaluate to a boolean (got %T)", r.ID, result)
		}
		if matched {
			d := r.Decision
			d.RuleID = r.ID
			return d, nil
		}
	}
	return PolicyDecision{}, nil
}

// Parameters converts a record into expression parameters.
func Parameters(data protocol.ResponseData) map[string]interface{} {
	fields := data.Map()
	params := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if f, ok := parseNumber(v); ok {
			params[k] = f
			continue
		}
		params[k] = v
	}
	return params
}

func parseNumber(s string) (float64, bool) {
	if !numericPattern.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}
