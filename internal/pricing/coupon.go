package pricing

import "strings"

// Coupon is a named discount rule. There is a single hard-coded
// definition in the current catalog; it is evaluated per checkout
// session and never persisted.
type Coupon struct {
	Code        string
	MinSubtotal float64
	Rate        float64
}

// Rejection reasons surfaced to the initiating actor.
const (
	ReasonInvalidCode    = "invalid coupon code"
	ReasonMinimumNotMet  = "minimum order amount not met"
	ReasonAlreadyApplied = "coupon already applied"
)

var coupons = map[string]Coupon{
	"ASHA50": {Code: "ASHA50", MinSubtotal: 299, Rate: 0.10},
}

// Result is the outcome of a coupon validation.
type Result struct {
	Accepted bool
	Discount float64
	Reason   string
}

// Engine validates coupon codes against a cart subtotal. It is
// stateless; the caller owns the applied/cleared session state.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Validate checks the rules in order: known code, minimum subtotal,
// not already applied. Codes match case-insensitively.
func (e *Engine) Validate(code string, subtotal float64, alreadyApplied bool) Result {
	coupon, ok := coupons[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Result{Reason: ReasonInvalidCode}
	}
	if subtotal < coupon.MinSubtotal {
		return Result{Reason: ReasonMinimumNotMet}
	}
	if alreadyApplied {
		return Result{Reason: ReasonAlreadyApplied}
	}
	return Result{Accepted: true, Discount: subtotal * coupon.Rate}
}
