package availability

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Dshy007/blockassign/core/history"
	"github.com/Dshy007/blockassign/core/model"
)

// Estimator is the probabilistic engine behind the availability model. The
// model owns the training-set construction; the estimator only fits and
// predicts. Implementations live under infra.
type Estimator interface {
	Fit(x [][]float64, y []float64) error
	Predict(x []float64) float64
}

// Minimum total samples needed before fitting is worthwhile.
const minTrainingSamples = 10

// ErrInsufficientData marks histories too thin to train on. Callers fall
// back to the next scorer rather than failing the run.
var ErrInsufficientData = errors.New("not enough history to train availability model")

// Model predicts per-date work probability for drivers with dated history.
type Model struct {
	est    Estimator
	fitted bool
}

// NewModel wraps an estimator.
func NewModel(est Estimator) *Model {
	return &Model{est: est}
}

// Fitted reports whether Train has succeeded.
func (m *Model) Fitted() bool {
	return m.fitted
}

// Train builds a balanced training set from the driver histories and fits
// the estimator. Positive samples are the dates each driver worked; negative
// samples are non-work dates inside the driver's own date range, thinned
// deterministically to roughly one negative per positive.
func (m *Model) Train(histories map[string][]model.AssignmentRecord, cache *history.Cache) error {
	var x [][]float64
	var y []float64
	positives, negatives := 0, 0

	for _, driverID := range sortedKeys(histories) {
		recs := histories[driverID]
		s := cache.Get(driverID, recs)
		if len(s.WorkDates) < 1 {
			continue
		}

		workSet := make(map[time.Time]bool, len(s.WorkDates))
		for _, d := range s.WorkDates {
			workSet[d] = true
		}

		for _, d := range s.WorkDates {
			x = append(x, Features(s, d))
			y = append(y, 1)
			positives++
		}

		var nonWork []time.Time
		first := s.WorkDates[0]
		last := s.WorkDates[len(s.WorkDates)-1]
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			if !workSet[d] {
				nonWork = append(nonWork, d)
			}
		}
		step := 1
		if len(s.WorkDates) > 0 && len(nonWork) > len(s.WorkDates) {
			step = len(nonWork) / len(s.WorkDates)
		}
		for i := 0; i < len(nonWork) && negatives < positives; i += step {
			x = append(x, Features(s, nonWork[i]))
			y = append(y, 0)
			negatives++
		}
	}

	if len(x) < minTrainingSamples || positives == 0 || negatives == 0 {
		return fmt.Errorf("%w: %d positive, %d negative samples", ErrInsufficientData, positives, negatives)
	}
	if err := m.est.Fit(x, y); err != nil {
		return fmt.Errorf("fit availability estimator: %w", err)
	}
	m.fitted = true
	return nil
}

// Score returns the predicted probability that the driver works on the date.
func (m *Model) Score(s *history.Stats, date time.Time) float64 {
	if !m.fitted {
		return 0
	}
	p := m.est.Predict(Features(s, date))
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// sortedKeys fixes the training iteration order so repeated runs produce the
// same fit.
func sortedKeys(histories map[string][]model.AssignmentRecord) []string {
	keys := make([]string, 0, len(histories))
	for k := range histories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
