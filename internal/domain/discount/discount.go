// Package discount evaluates the checkout discount components. The two
// components stack: a volume discount for large carts and a loyalty discount
// for customers whose successful order count has reached a multiple of ten.
package discount

import "github.com/shopspring/decimal"

const (
	// VolumeThreshold is the aggregate cart quantity at which the volume
	// discount applies.
	VolumeThreshold = 5
	// LoyaltyInterval is the prior successful order count interval at which
	// the loyalty discount applies.
	LoyaltyInterval = 10
)

var (
	volumeRate  = decimal.RequireFromString("0.05")
	loyaltyRate = decimal.RequireFromString("0.10")
)

// Summary holds the evaluated discount rate and which components fired.
type Summary struct {
	Rate    decimal.Decimal
	Volume  bool
	Loyalty bool
}

// Evaluate computes the discount for a checkout with the given aggregate cart
// quantity and count of the customer's prior successful orders. Components
// are evaluated independently and their rates summed.
func Evaluate(totalQuantity, successfulOrders int) Summary {
	s := Summary{Rate: decimal.Zero}

	if totalQuantity >= VolumeThreshold {
		s.Volume = true
		s.Rate = s.Rate.Add(volumeRate)
	}
	if successfulOrders > 0 && successfulOrders%LoyaltyInterval == 0 {
		s.Loyalty = true
		s.Rate = s.Rate.Add(loyaltyRate)
	}

	return s
}

// Amount returns the absolute discount for the given subtotal, rounded to
// 2 decimal places.
func (s Summary) Amount(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(s.Rate).Round(2)
}

// Message returns the user-facing summary of which discounts applied.
func (s Summary) Message() string {
	switch {
	case s.Volume && s.Loyalty:
		return "You got a 5% discount for ordering 5 or more books and an additional 10% loyalty discount for 10 completed orders."
	case s.Volume:
		return "You got a 5% discount for ordering 5 or more books."
	case s.Loyalty:
		return "You got a 10% loyalty discount for completing 10 orders."
	default:
		return "No discount applied."
	}
}
