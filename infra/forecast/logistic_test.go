package forecast

import "testing"

func TestLogisticSeparableData(t *testing.T) {
	// Positives cluster high on the first feature, negatives low.
	var x [][]float64
	var y []float64
	for i := 0; i < 20; i++ {
		x = append(x, []float64{5 + float64(i%3), 1})
		y = append(y, 1)
		x = append(x, []float64{float64(i % 3), 1})
		y = append(y, 0)
	}

	est := NewLogisticEstimator()
	if err := est.Fit(x, y); err != nil {
		t.Fatalf("fit: %v", err)
	}

	high := est.Predict([]float64{6, 1})
	low := est.Predict([]float64{0, 1})
	if high <= 0.8 {
		t.Fatalf("positive-side prediction too low: %v", high)
	}
	if low >= 0.2 {
		t.Fatalf("negative-side prediction too high: %v", low)
	}
}

func TestLogisticRejectsBadInput(t *testing.T) {
	est := NewLogisticEstimator()
	if err := est.Fit(nil, nil); err == nil {
		t.Fatalf("expected error on empty data")
	}
	if err := est.Fit([][]float64{{1, 2}, {1}}, []float64{1, 0}); err == nil {
		t.Fatalf("expected error on ragged matrix")
	}
}

func TestLogisticUnfittedPredictsZero(t *testing.T) {
	est := NewLogisticEstimator()
	if got := est.Predict([]float64{1, 2}); got != 0 {
		t.Fatalf("unfitted estimator returned %v", got)
	}
}

func TestLogisticConstantFeatureDoesNotBlowUp(t *testing.T) {
	x := [][]float64{{1, 7}, {2, 7}, {3, 7}, {4, 7}}
	y := []float64{0, 0, 1, 1}
	est := NewLogisticEstimator()
	if err := est.Fit(x, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	p := est.Predict([]float64{4, 7})
	if p < 0 || p > 1 {
		t.Fatalf("prediction out of range: %v", p)
	}
}
