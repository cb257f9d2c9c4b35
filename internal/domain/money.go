package domain

import "github.com/shopspring/decimal"

// Money is stored as float64 (decimal(12,2) columns); arithmetic goes through
// decimal so sums of cents never drift.

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func toMoney(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// Round2 rounds half away from zero to cents.
func Round2(v float64) float64 { return toMoney(dec(v)) }

// LineTotal is unit * qty rounded to cents.
func LineTotal(unit float64, qty int) float64 {
	return toMoney(dec(unit).Mul(decimal.NewFromInt(int64(qty))))
}

// ApplyRate returns amount * pct / 100.
func ApplyRate(amount, pct float64) float64 {
	return toMoney(dec(amount).Mul(dec(pct)).Div(decimal.NewFromInt(100)))
}

// Percent returns part/whole*100, or 0 when whole <= 0.
func Percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return toMoney(dec(part).Div(dec(whole)).Mul(decimal.NewFromInt(100)))
}

// Sum adds amounts exactly.
func Sum(vals ...float64) float64 {
	total := decimal.Zero
	for _, v := range vals {
		total = total.Add(dec(v))
	}
	return toMoney(total)
}

// Sub returns a - b.
func Sub(a, b float64) float64 { return toMoney(dec(a).Sub(dec(b))) }

// Mul returns a * b rounded to cents (rate * hours and similar).
func Mul(a, b float64) float64 { return toMoney(dec(a).Mul(dec(b))) }
