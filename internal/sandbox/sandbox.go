// Package sandbox predicts the outcome of an action without executing
// it. Predictions are best effort and never touch persistent state.
package sandbox

import (
	"fmt"

	"github.com/okhotin/agentgate/internal/action"
)

// Result describes the predicted outcome of a dry run.
type Result struct {
	WillSucceed   bool     `json:"willSucceed"`
	EstimatedCost float64  `json:"estimatedCost,omitempty"`
	SideEffects   []string `json:"sideEffects"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Simulate evaluates the action against its declared parameters and
// returns a prediction. Missing required parameters or a disabled
// action make the prediction fail; everything else is assumed to
// succeed with category-derived side effects.
func Simulate(act action.Definition, params map[string]any) Result {
	res := Result{WillSucceed: true, SideEffects: []string{}}

	if !act.Enabled {
		res.WillSucceed = false
		res.Warnings = append(res.Warnings, fmt.Sprintf("action %q is disabled", act.Name))
		return res
	}

	for _, p := range act.Params {
		if !p.Required {
			continue
		}
		if _, ok := params[p.Name]; !ok {
			res.WillSucceed = false
			res.Warnings = append(res.Warnings, fmt.Sprintf("missing required parameter %q", p.Name))
		}
	}

	res.SideEffects = sideEffectsFor(act)
	res.EstimatedCost = estimateCost(act, params)

	if act.ConfirmationRequired {
		res.Warnings = append(res.Warnings, "action requires confirmation before execution")
	}
	return res
}

func sideEffectsFor(act action.Definition) []string {
	switch act.Category {
	case action.CategorySearch:
		return []string{}
	case action.CategoryContent:
		return []string{"content read"}
	case action.CategoryPurchase:
		switch act.Name {
		case "add_to_cart":
			return []string{"cart mutation"}
		case "checkout":
			return []string{"payment capture", "inventory decrement", "order creation"}
		case "cancel_order":
			return []string{"order state change", "refund initiation"}
		}
		return []string{"purchase state change"}
	case action.CategoryAccount:
		return []string{"account state change"}
	}
	return []string{}
}

func estimateCost(act action.Definition, params map[string]any) float64 {
	if act.Category != action.CategoryPurchase {
		return 0
	}
	switch v := params["amount"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
