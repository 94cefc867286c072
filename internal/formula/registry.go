// Package formula holds the per-pair conversion rules. Rules are pure
// functions registered at startup; resolution never fails, unknown or
// missing ids fall back to the default rule.
package formula

import "cryptoquote-service/internal/domain"

// Rule is a conversion function plus static display strings. Calculate
// takes the input amount, the pair price and the fee percent and returns
// the amount received.
type Rule struct {
	ID          string
	Description string
	Example     string
	Calculate   func(amount, price, feePercent float64) float64
}

var defaultRule = Rule{
	ID:          "default",
	Description: "Standard conversion formula",
	Example:     "amount x price x (1 - fee)",
	Calculate: func(amount, price, fee float64) float64 {
		return amount * price * (1 - fee/100)
	},
}

func premiumCalc(amount, price, fee float64) float64 {
	return amount * price * (1 - (fee/100)*0.5)
}

// volumeDiscountCalc cuts the effective fee by 30% strictly above amount 5.
func volumeDiscountCalc(amount, price, fee float64) float64 {
	discount := 1.0
	if amount > 5 {
		discount = 0.7
	}
	return amount * price * (1 - (fee/100)*discount)
}

// Registry maps formula ids to rules. Immutable after NewRegistry.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry returns a registry holding the built-in rule set. The
// premium rule halves the effective fee; the volume-discount rules apply
// a 0.7 fee multiplier above amount 5 and 1.0 at or below.
func NewRegistry() *Registry {
	r := &Registry{rules: map[string]Rule{}}
	r.register(Rule{
		ID:          "premium",
		Description: "Premium formula with a reduced fee (0.5x)",
		Example:     "amount x price x (1 - fee x 0.5)",
		Calculate:   premiumCalc,
	})
	r.register(Rule{
		ID:          "premium_btc",
		Description: "Premium formula with a reduced fee (0.5x)",
		Example:     "amount x price x (1 - fee x 0.5)",
		Calculate:   premiumCalc,
	})
	r.register(Rule{
		ID:          "high_volume",
		Description: "High-volume formula with a dynamic fee above 5",
		Example:     "amount x price x (1 - fee x discount)",
		Calculate:   volumeDiscountCalc,
	})
	r.register(Rule{
		ID:          "btc_usdt",
		Description: "BTC/USDT formula with a dynamic fee",
		Example:     "amount x price x (1 - fee x discount)",
		Calculate:   volumeDiscountCalc,
	})
	return r
}

func (r *Registry) register(rule Rule) { r.rules[rule.ID] = rule }

// Resolve returns the rule for a pair. Pairs without a custom formula, and
// custom pairs whose id is not registered, get the default rule: a usable
// rule always comes back, never an error.
func (r *Registry) Resolve(p domain.Pair) Rule {
	if p.FormulaKind == domain.FormulaCustom && p.FormulaID != "" {
		if rule, ok := r.rules[p.FormulaID]; ok {
			return rule
		}
	}
	return defaultRule
}

// Default returns the built-in default rule.
func (r *Registry) Default() Rule { return defaultRule }
