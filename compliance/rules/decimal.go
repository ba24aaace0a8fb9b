package rules

import (
	"math/big"
	"strconv"
)

// decimal converts f to an exact rational using its shortest decimal form,
// so that 611.97 is 61197/100 and not the nearest binary double.
func decimal(f float64) *big.Rat {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'f', -1, 64))
	if !ok {
		return new(big.Rat)
	}
	return r
}

// withinTolerance reports whether |a-b| <= tol.
func withinTolerance(a, b float64, tol *big.Rat) bool {
	diff := new(big.Rat).Sub(decimal(a), decimal(b))
	return diff.Abs(diff).Cmp(tol) <= 0
}

var half = big.NewRat(1, 2)

// roundHalfUp rounds f to places decimal digits, ties away from zero.
func roundHalfUp(f float64, places int) *big.Rat {
	scale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(places)), nil))
	v := decimal(f)
	neg := v.Sign() < 0
	v.Abs(v)
	v.Mul(v, scale)
	v.Add(v, half)
	q := new(big.Int).Quo(v.Num(), v.Denom())
	if neg {
		q.Neg(q)
	}
	return new(big.Rat).SetFrac(q, scale.Num())
}
