// Package metric implements the forecast accuracy formulas.
//
// Every function takes the ground truth vector first and the predicted vector
// second. Inputs must have equal, non-zero length and hold finite values.
// Percentage metrics replace zeros in the ground truth with its smallest
// non-zero value before dividing; Compute applies that substitution once and
// then evaluates every metric on the substituted vector.
package metric

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const percent = 100

// Set is the full battery of accuracy metrics. All values are finite.
type Set struct {
	MAE   float64 `json:"MAE"`
	MSE   float64 `json:"MSE"`
	RMSE  float64 `json:"RMSE"`
	MAPE  float64 `json:"MAPE"`
	R2    float64 `json:"R2"`
	SMAPE float64 `json:"sMAPE"`
	NRMSE float64 `json:"NRMSE"`
	MARNE float64 `json:"MARNE"`
	WMAPE float64 `json:"WMAPE"`
}

// Rounded returns a copy with every metric rounded to two decimals.
func (s Set) Rounded() Set {
	return Set{
		MAE:   Round(s.MAE),
		MSE:   Round(s.MSE),
		RMSE:  Round(s.RMSE),
		MAPE:  Round(s.MAPE),
		R2:    Round(s.R2),
		SMAPE: Round(s.SMAPE),
		NRMSE: Round(s.NRMSE),
		MARNE: Round(s.MARNE),
		WMAPE: Round(s.WMAPE),
	}
}

// Round rounds x to two decimals, half to even.
func Round(x float64) float64 {
	return math.RoundToEven(x*percent) / percent
}

// Compute validates the vectors, substitutes zeros in yTrue and evaluates every metric.
func Compute(yTrue, yPred []float64) (Set, error) {
	if err := validate("compute", yTrue, yPred); err != nil {
		return Set{}, err
	}
	t, err := SubstituteZeros(yTrue)
	if err != nil {
		return Set{}, err
	}

	var s Set
	steps := []struct {
		op  string
		dst *float64
		fn  func(t, p []float64) (float64, error)
	}{
		{"mae", &s.MAE, mae},
		{"mse", &s.MSE, mse},
		{"rmse", &s.RMSE, rmse},
		{"mape", &s.MAPE, mape},
		{"r2", &s.R2, r2},
		{"smape", &s.SMAPE, smape},
		{"nrmse", &s.NRMSE, nrmse},
		{"marne", &s.MARNE, marne},
		{"wmape", &s.WMAPE, wmape},
	}
	for _, st := range steps {
		v, err := st.fn(t, yPred)
		if err != nil {
			return Set{}, err
		}
		if err := finite(st.op, v); err != nil {
			return Set{}, err
		}
		*st.dst = v
	}
	return s, nil
}

// SubstituteZeros returns a copy of y where every zero is replaced by the
// smallest non-zero value of y. Negative values count.
func SubstituteZeros(y []float64) ([]float64, error) {
	minNonZero := math.Inf(1)
	for _, v := range y {
		if v != 0 && v < minNonZero {
			minNonZero = v
		}
	}
	if math.IsInf(minNonZero, 1) {
		return nil, &InputError{Op: "substitute", Index: -1, Value: 0, Err: ErrDegenerateInput}
	}
	out := slices.Clone(y)
	for i, v := range out {
		if v == 0 {
			out[i] = minNonZero
		}
	}
	return out, nil
}

// MAE is the mean absolute error.
func MAE(yTrue, yPred []float64) (float64, error) {
	return single("mae", yTrue, yPred, false, mae)
}

// MSE is the mean squared error.
func MSE(yTrue, yPred []float64) (float64, error) {
	return single("mse", yTrue, yPred, false, mse)
}

// RMSE is the root of MSE.
func RMSE(yTrue, yPred []float64) (float64, error) {
	return single("rmse", yTrue, yPred, false, rmse)
}

// MAPE is the mean absolute percentage error, zeros substituted.
func MAPE(yTrue, yPred []float64) (float64, error) {
	return single("mape", yTrue, yPred, true, mape)
}

// R2 is the coefficient of determination. A constant yTrue has no defined R2.
func R2(yTrue, yPred []float64) (float64, error) {
	return single("r2", yTrue, yPred, false, r2)
}

// SMAPE is the symmetric mean absolute percentage error, zeros substituted.
func SMAPE(yTrue, yPred []float64) (float64, error) {
	return single("smape", yTrue, yPred, true, smape)
}

// NRMSE is RMSE divided by the range of yTrue.
func NRMSE(yTrue, yPred []float64) (float64, error) {
	return single("nrmse", yTrue, yPred, false, nrmse)
}

// MARNE is MAE divided by the range of yTrue.
func MARNE(yTrue, yPred []float64) (float64, error) {
	return single("marne", yTrue, yPred, false, marne)
}

// WMAPE is the weighted absolute percentage error, zeros substituted.
func WMAPE(yTrue, yPred []float64) (float64, error) {
	return single("wmape", yTrue, yPred, true, wmape)
}

func single(op string, yTrue, yPred []float64, substitute bool, fn func(t, p []float64) (float64, error)) (float64, error) {
	if err := validate(op, yTrue, yPred); err != nil {
		return 0, err
	}
	t := yTrue
	if substitute {
		var err error
		if t, err = SubstituteZeros(yTrue); err != nil {
			return 0, err
		}
	}
	v, err := fn(t, yPred)
	if err != nil {
		return 0, err
	}
	return v, finite(op, v)
}

func validate(op string, yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return invalid(op, -1, 0, "empty vectors")
	}
	if len(yTrue) != len(yPred) {
		return invalid(op, -1, float64(len(yPred)), "length mismatch")
	}
	for _, v := range [][]float64{yTrue, yPred} {
		if !floats.HasNaN(v) && !hasInf(v) {
			continue
		}
		for i, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return invalid(op, i, x, "non-finite value")
			}
		}
	}
	return nil
}

func hasInf(v []float64) bool {
	for _, x := range v {
		if math.IsInf(x, 0) {
			return true
		}
	}
	return false
}

func finite(op string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(op, -1, v, "non-finite result")
	}
	return nil
}

func absErrors(t, p []float64) []float64 {
	out := make([]float64, len(t))
	for i := range t {
		out[i] = math.Abs(t[i] - p[i])
	}
	return out
}

func span(op string, t []float64) (float64, error) {
	r := floats.Max(t) - floats.Min(t)
	if r == 0 {
		return 0, invalid(op, -1, floats.Max(t), "ground truth range is zero")
	}
	return r, nil
}

func mae(t, p []float64) (float64, error) {
	return stat.Mean(absErrors(t, p), nil), nil
}

func mse(t, p []float64) (float64, error) {
	sq := make([]float64, len(t))
	for i := range t {
		d := t[i] - p[i]
		sq[i] = d * d
	}
	return stat.Mean(sq, nil), nil
}

func rmse(t, p []float64) (float64, error) {
	m, err := mse(t, p)
	return math.Sqrt(m), err
}

func mape(t, p []float64) (float64, error) {
	ape := make([]float64, len(t))
	for i := range t {
		ape[i] = math.Abs((t[i] - p[i]) / t[i])
	}
	return stat.Mean(ape, nil) * percent, nil
}

func r2(t, p []float64) (float64, error) {
	return stat.RSquaredFrom(p, t, nil), nil
}

func smape(t, p []float64) (float64, error) {
	s := make([]float64, len(t))
	for i := range t {
		s[i] = 2 * math.Abs(p[i]-t[i]) / (math.Abs(t[i]) + math.Abs(p[i]))
	}
	return percent * stat.Mean(s, nil), nil
}

func nrmse(t, p []float64) (float64, error) {
	r, err := span("nrmse", t)
	if err != nil {
		return 0, err
	}
	e, _ := rmse(t, p)
	return e / r, nil
}

func marne(t, p []float64) (float64, error) {
	r, err := span("marne", t)
	if err != nil {
		return 0, err
	}
	e, _ := mae(t, p)
	return e / r, nil
}

func wmape(t, p []float64) (float64, error) {
	abs := make([]float64, len(t))
	for i, v := range t {
		abs[i] = math.Abs(v)
	}
	return floats.Sum(absErrors(t, p)) / floats.Sum(abs) * percent, nil
}
