package money

import "github.com/shopspring/decimal"

// Hundred is the divisor for percentage rates.
var Hundred = decimal.NewFromInt(100)

// RoundCents rounds half away from zero to two decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// HasSubCents reports whether d carries digits below the cent.
func HasSubCents(d decimal.Decimal) bool {
	return !d.Equal(d.Round(2))
}

// PercentOf returns amount * rate / 100, rounded to cents.
func PercentOf(amount, ratePercent decimal.Decimal) decimal.Decimal {
	return RoundCents(amount.Mul(ratePercent).Div(Hundred))
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	return Max(d, decimal.Zero)
}

// Clamp bounds d to [lo, hi].
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	return Min(Max(d, lo), hi)
}

// SplitEvenly divides total into n installments truncated to cents. The last
// installment absorbs the residue, so the parts sum to total and the last is
// never smaller than the others. Parts are zero when total/n is under a cent.
func SplitEvenly(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	share := total.Div(decimal.NewFromInt(int64(n))).Truncate(2)
	parts := make([]decimal.Decimal, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		parts[i] = share
		allocated = allocated.Add(share)
	}
	parts[n-1] = total.Sub(allocated)
	return parts
}
