// Package pricing derives the monetary fields of sale lines and sales.
//
// Every computed field is rounded to 2 decimal places as soon as it is
// produced, never once at the end: persisted rows must be reproducible from
// their inputs bit for bit. The functions are pure so the sale engine can
// call them before any write.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places stored for every money column.
const Places = 2

var (
	hundred = decimal.NewFromInt(100)

	// Tolerance is the maximum difference accepted by the Verify functions.
	Tolerance = decimal.New(1, -Places)

	// MaxAmount is the exclusive upper bound of a decimal(12,2) money column.
	MaxAmount = decimal.New(1, 10)
)

// PercentPlaces is the number of decimal places stored for a discount percentage.
const PercentPlaces = 2

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrInvalidPrice    = errors.New("unit price must not be negative")
	ErrInvalidDiscount = errors.New("discount percentage must be between 0 and 100")
	ErrInvalidTaxRate  = errors.New("tax rate must be between 0 and 1")
	ErrInconsistent    = errors.New("monetary fields are inconsistent")
)

// InconsistencyError names the field that failed verification.
type InconsistencyError struct {
	Field string
	Want  decimal.Decimal
	Got   decimal.Decimal
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Field, e.Want.StringFixed(Places), e.Got.StringFixed(Places))
}

func (e *InconsistencyError) Is(target error) bool { return target == ErrInconsistent }

// Round2 rounds d half away from zero to 2 decimal places.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(Places) }

// LineTotals are the derived money fields of one sale line.
type LineTotals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	TaxAmount      decimal.Decimal
}

// SaleTotals are the aggregated money fields of a sale.
type SaleTotals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// DeriveLineTotals computes
//
//	subtotal = round2(quantity × unitPrice)
//	discount = round2(subtotal × discountPct / 100)
//	total    = round2(subtotal − discount)
//	tax      = round2(total × taxRate)
func DeriveLineTotals(quantity int, unitPrice, discountPct, taxRate decimal.Decimal) (LineTotals, error) {
	if quantity <= 0 {
		return LineTotals{}, ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return LineTotals{}, ErrInvalidPrice
	}
	if discountPct.IsNegative() || discountPct.GreaterThan(hundred) {
		return LineTotals{}, ErrInvalidDiscount
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(1)) {
		return LineTotals{}, ErrInvalidTaxRate
	}

	subtotal := Round2(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
	discount := Round2(subtotal.Mul(discountPct).Div(hundred))
	total := Round2(subtotal.Sub(discount))
	tax := Round2(total.Mul(taxRate))

	return LineTotals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Total:          total,
		TaxAmount:      tax,
	}, nil
}

// DeriveSaleTotals sums line totals into sale totals, rounding after every
// addition, and derives total = round2(subtotal − discount + tax).
func DeriveSaleTotals(lines []LineTotals) SaleTotals {
	st := SaleTotals{
		Subtotal:       decimal.Zero,
		DiscountAmount: decimal.Zero,
		TaxAmount:      decimal.Zero,
	}
	for _, l := range lines {
		st.Subtotal = Round2(st.Subtotal.Add(l.Subtotal))
		st.DiscountAmount = Round2(st.DiscountAmount.Add(l.DiscountAmount))
		st.TaxAmount = Round2(st.TaxAmount.Add(l.TaxAmount))
	}
	st.Total = Round2(st.Subtotal.Sub(st.DiscountAmount).Add(st.TaxAmount))
	return st
}

// VerifyLine checks persisted line fields against their inputs.
func VerifyLine(quantity int, unitPrice, discountPct decimal.Decimal, lt LineTotals) error {
	checks := []struct {
		field string
		want  decimal.Decimal
		got   decimal.Decimal
	}{
		{"subtotal", unitPrice.Mul(decimal.NewFromInt(int64(quantity))), lt.Subtotal},
		{"discount_amount", lt.Subtotal.Mul(discountPct).Div(hundred), lt.DiscountAmount},
		{"total_amount", lt.Subtotal.Sub(lt.DiscountAmount), lt.Total},
		{"total_amount", ExpectedLineTotal(quantity, unitPrice, discountPct), lt.Total},
	}
	for _, c := range checks {
		if !withinTolerance(c.want, c.got) {
			return &InconsistencyError{Field: c.field, Want: Round2(c.want), Got: c.got}
		}
	}
	return nil
}

// VerifySale checks that sale totals equal the sum of the line totals and
// that total = subtotal − discount + tax.
func VerifySale(st SaleTotals, lines []LineTotals) error {
	want := DeriveSaleTotals(lines)
	checks := []struct {
		field string
		want  decimal.Decimal
		got   decimal.Decimal
	}{
		{"subtotal", want.Subtotal, st.Subtotal},
		{"discount_amount", want.DiscountAmount, st.DiscountAmount},
		{"tax_amount", want.TaxAmount, st.TaxAmount},
		{"total_amount", st.Subtotal.Sub(st.DiscountAmount).Add(st.TaxAmount), st.Total},
	}
	for _, c := range checks {
		if !withinTolerance(c.want, c.got) {
			return &InconsistencyError{Field: c.field, Want: Round2(c.want), Got: c.got}
		}
	}
	return nil
}

// ExpectedLineTotal is round(round(quantity × unitPrice, 2) × (1 − pct/100), 2).
func ExpectedLineTotal(quantity int, unitPrice, discountPct decimal.Decimal) decimal.Decimal {
	subtotal := Round2(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
	factor := decimal.NewFromInt(1).Sub(discountPct.Div(hundred))
	return Round2(subtotal.Mul(factor))
}

func withinTolerance(want, got decimal.Decimal) bool {
	return want.Sub(got).Abs().LessThanOrEqual(Tolerance)
}
