// Package money implements fixed-point monetary amounts with exact
// allocation primitives. Amounts are stored as int64 cents so split
// computations never lose sub-cent residue to floating point.
package money

import (
	"errors"
	"fmt"
	"strings"
)

// Amount is a monetary value in cents.
type Amount int64

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNonPositive   = errors.New("amount must be positive")
)

// Parse converts a 2dp decimal string ("12.34") to cents.
func Parse(raw string) (Amount, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidAmount
	}

	neg := false
	if strings.HasPrefix(raw, "-") {
		neg = true
		raw = raw[1:]
	}

	whole := raw
	frac := ""
	if idx := strings.IndexByte(raw, '.'); idx >= 0 {
		whole = raw[:idx]
		frac = raw[idx+1:]
	}
	if whole == "" && frac == "" {
		return 0, ErrInvalidAmount
	}
	if len(frac) > 2 {
		return 0, ErrInvalidAmount
	}
	for len(frac) < 2 {
		frac += "0"
	}

	var cents int64
	for _, part := range []string{whole, frac} {
		for _, ch := range part {
			if ch < '0' || ch > '9' {
				return 0, ErrInvalidAmount
			}
			cents = cents*10 + int64(ch-'0')
			if cents < 0 {
				return 0, ErrInvalidAmount
			}
		}
	}
	if neg {
		cents = -cents
	}
	return Amount(cents), nil
}

// MustParse is Parse for trusted literals, mainly in tests.
func MustParse(raw string) Amount {
	amount, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return amount
}

// FromCents wraps a raw cent count.
func FromCents(cents int64) Amount { return Amount(cents) }

// Cents returns the raw cent count.
func (a Amount) Cents() int64 { return int64(a) }

// String renders the amount as a 2dp decimal string.
func (a Amount) String() string {
	cents := int64(a)
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// MulQuantity multiplies a unit price by a quantity.
func (a Amount) MulQuantity(qty int) Amount {
	return Amount(int64(a) * int64(qty))
}

// SplitEven divides total into n parts that sum exactly to total. The
// residual cents left by integer division go to the earliest parts, so
// the caller's ordering decides who absorbs the extra cent. Negative
// totals split the same way with the residue subtracted instead.
func SplitEven(total Amount, n int) []Amount {
	if n <= 0 {
		return nil
	}
	base := int64(total) / int64(n)
	rem := int64(total) % int64(n)
	parts := make([]Amount, n)
	for i := range parts {
		parts[i] = Amount(base)
		switch {
		case rem > 0 && int64(i) < rem:
			parts[i]++
		case rem < 0 && int64(i) < -rem:
			parts[i]--
		}
	}
	return parts
}

// Distribute allocates total across weights proportionally using the
// largest-remainder method. The result has the same length as weights
// and sums exactly to total. Zero total weight yields all zeros for a
// zero total and an error otherwise.
func Distribute(total Amount, weights []Amount) ([]Amount, error) {
	if len(weights) == 0 {
		return nil, ErrInvalidAmount
	}

	var sumWeights int64
	for _, w := range weights {
		if w < 0 {
			return nil, ErrInvalidAmount
		}
		sumWeights += int64(w)
	}
	if sumWeights == 0 {
		if total == 0 {
			return make([]Amount, len(weights)), nil
		}
		return nil, ErrInvalidAmount
	}

	parts := make([]Amount, len(weights))
	remainders := make([]int64, len(weights))
	var allocated int64
	for i, w := range weights {
		share := int64(total) * int64(w)
		parts[i] = Amount(share / sumWeights)
		remainders[i] = share % sumWeights
		allocated += share / sumWeights
	}

	// Hand the leftover cents to the largest remainders, index order
	// breaking ties so the result is deterministic.
	leftover := int64(total) - allocated
	for leftover > 0 {
		best := -1
		for i, r := range remainders {
			if r == 0 {
				continue
			}
			if best < 0 || r > remainders[best] {
				best = i
			}
		}
		if best < 0 {
			best = 0
		}
		parts[best]++
		remainders[best] = 0
		leftover--
	}

	return parts, nil
}

// Sum adds a slice of amounts.
func Sum(amounts []Amount) Amount {
	var total Amount
	for _, a := range amounts {
		total += a
	}
	return total
}
