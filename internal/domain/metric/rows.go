package metric

import "math"

// PointError holds the per-row contributions to the summary metrics.
type PointError struct {
	AbsError  float64 `json:"MAE"`
	SqError   float64 `json:"MSE"`
	RootSq    float64 `json:"RMSE"`
	APE       float64 `json:"MAPE"`
	SAPE      float64 `json:"sMAPE"`
	RangeSq   float64 `json:"NRMSE"`
	RangeAbs  float64 `json:"MARNE"`
	WeightAPE float64 `json:"WMAPE"`
}

// PointErrors returns one PointError per row, using the same zero
// substitution and range as Compute.
func PointErrors(yTrue, yPred []float64) ([]PointError, error) {
	if err := validate("point_errors", yTrue, yPred); err != nil {
		return nil, err
	}
	t, err := SubstituteZeros(yTrue)
	if err != nil {
		return nil, err
	}
	r, err := span("point_errors", t)
	if err != nil {
		return nil, err
	}

	out := make([]PointError, len(t))
	for i := range t {
		d := t[i] - yPred[i]
		abs := math.Abs(d)
		out[i] = PointError{
			AbsError:  abs,
			SqError:   d * d,
			RootSq:    math.Sqrt(d * d),
			APE:       math.Abs(d/t[i]) * percent,
			SAPE:      percent * 2 * abs / (math.Abs(t[i]) + math.Abs(yPred[i])),
			RangeSq:   math.Sqrt(d*d) / r,
			RangeAbs:  abs / r,
			WeightAPE: abs / math.Abs(t[i]) * percent,
		}
	}
	return out, nil
}
