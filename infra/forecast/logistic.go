// Package forecast provides the logistic-regression estimator behind the
// availability model.
package forecast

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	defaultEpochs       = 500
	defaultLearningRate = 0.1
)

// LogisticEstimator fits a logistic regression with full-batch gradient
// descent. Features are standardized before training so the fixed learning
// rate behaves across feature scales.
type LogisticEstimator struct {
	Epochs       int
	LearningRate float64

	weights *mat.VecDense
	bias    float64
	mean    []float64
	std     []float64
}

// NewLogisticEstimator returns an estimator with default hyperparameters.
func NewLogisticEstimator() *LogisticEstimator {
	return &LogisticEstimator{Epochs: defaultEpochs, LearningRate: defaultLearningRate}
}

// Fit trains on the given samples. Labels must be 0 or 1.
func (e *LogisticEstimator) Fit(x [][]float64, y []float64) error {
	if len(x) == 0 || len(x) != len(y) {
		return errors.New("forecast: mismatched training data")
	}
	rows := len(x)
	cols := len(x[0])
	for _, row := range x {
		if len(row) != cols {
			return errors.New("forecast: ragged feature matrix")
		}
	}

	e.mean, e.std = standardization(x)
	data := mat.NewDense(rows, cols, nil)
	for i, row := range x {
		for j, v := range row {
			data.Set(i, j, (v-e.mean[j])/e.std[j])
		}
	}

	epochs := e.Epochs
	if epochs <= 0 {
		epochs = defaultEpochs
	}
	lr := e.LearningRate
	if lr <= 0 {
		lr = defaultLearningRate
	}

	w := mat.NewVecDense(cols, nil)
	bias := 0.0
	grad := mat.NewVecDense(cols, nil)
	pred := mat.NewVecDense(rows, nil)

	for epoch := 0; epoch < epochs; epoch++ {
		pred.MulVec(data, w)
		biasGrad := 0.0
		for i := 0; i < rows; i++ {
			diff := sigmoid(pred.AtVec(i)+bias) - y[i]
			pred.SetVec(i, diff)
			biasGrad += diff
		}
		grad.MulVec(data.T(), pred)
		grad.ScaleVec(lr/float64(rows), grad)
		w.SubVec(w, grad)
		bias -= lr * biasGrad / float64(rows)
	}

	e.weights = w
	e.bias = bias
	return nil
}

// Predict returns the probability for one feature vector. An unfitted
// estimator returns 0.
func (e *LogisticEstimator) Predict(x []float64) float64 {
	if e.weights == nil || len(x) != e.weights.Len() {
		return 0
	}
	z := e.bias
	for j, v := range x {
		z += e.weights.AtVec(j) * (v - e.mean[j]) / e.std[j]
	}
	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func standardization(x [][]float64) (mean, std []float64) {
	cols := len(x[0])
	mean = make([]float64, cols)
	std = make([]float64, cols)
	for j := 0; j < cols; j++ {
		sum := 0.0
		for _, row := range x {
			sum += row[j]
		}
		mean[j] = sum / float64(len(x))
		variance := 0.0
		for _, row := range x {
			d := row[j] - mean[j]
			variance += d * d
		}
		std[j] = math.Sqrt(variance / float64(len(x)))
		if std[j] < 1e-9 {
			std[j] = 1
		}
	}
	return mean, std
}
