package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vietanh2810/campreg-api/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Reduction is a discount ready to be applied to an amount.
type Reduction struct {
	Name  string
	Type  domain.DiscountType
	Value decimal.Decimal
}

// Amount returns how much the reduction takes off base. Percentages are
// rounded to cents and fixed values never exceed base.
func (r Reduction) Amount(base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}

	switch r.Type {
	case domain.DiscountPercentage:
		return base.Mul(r.Value).Div(hundred).Round(2)
	case domain.DiscountFixed:
		return decimal.Min(r.Value, base)
	}
	return decimal.Zero
}

// RegistrationContext holds the facts eligibility conditions are checked
// against.
type RegistrationContext struct {
	ParticipantCount int
	At               time.Time
}

func Eligible(c domain.Condition, rc RegistrationContext) bool {
	switch c.Kind {
	case domain.ConditionAlways:
		return true
	case domain.ConditionMinParticipants:
		return rc.ParticipantCount >= c.MinParticipants
	case domain.ConditionRegisteredBefore:
		return c.Before != nil && rc.At.Before(*c.Before)
	}
	return false
}

// EvaluateAutomaticDiscounts returns every eligible discount in the order it
// is declared on the policy.
func EvaluateAutomaticDiscounts(policy domain.PricingPolicy, rc RegistrationContext) []Reduction {
	var out []Reduction
	for _, d := range policy.Discounts {
		if !Eligible(d.Condition, rc) {
			continue
		}
		out = append(out, Reduction{
			Name:  d.Name,
			Type:  d.Type,
			Value: d.Value,
		})
	}
	return out
}
