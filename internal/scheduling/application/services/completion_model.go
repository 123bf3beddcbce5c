package services

import (
	"encoding/json"
	"math"
	"sync"
)

// MinSamplesForUpdate is the minimum number of labeled completion events
// required before PartialFit adjusts the model.
const MinSamplesForUpdate = 5

// CompletionModel predicts, per feature row, the probability that a task
// scheduled at that slot will actually be completed. It is a per-user
// online-updated logistic model: simple enough to update incrementally from
// a handful of labeled examples without a numerical optimization library.
type CompletionModel struct {
	mu      sync.RWMutex
	weights []float64
	bias    float64
	loaded  bool
	samples int
}

// NewCompletionModel creates an untrained model; Predict falls back to 0.7
// until enough samples have been seen via PartialFit or Unmarshal.
func NewCompletionModel(numFeatures int) *CompletionModel {
	return &CompletionModel{weights: make([]float64, numFeatures)}
}

// Predict returns a probability in [0,1] per input row.
func (m *CompletionModel) Predict(rows [][]float64) []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]float64, len(rows))
	if !m.loaded {
		for i := range out {
			out[i] = 0.7
		}
		return out
	}
	for i, row := range rows {
		out[i] = sigmoid(dot(m.weights, row) + m.bias)
	}
	return out
}

// PartialFit performs one pass of online gradient descent over (X, y) when
// at least MinSamplesForUpdate labeled rows are supplied, returning the
// number of samples incorporated.
func (m *CompletionModel) PartialFit(x [][]float64, y []float64, learningRate float64) int {
	if len(x) < MinSamplesForUpdate || len(x) != len(y) {
		return 0
	}
	if learningRate <= 0 {
		learningRate = 0.05
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.weights) == 0 && len(x) > 0 {
		m.weights = make([]float64, len(x[0]))
	}

	for i, row := range x {
		pred := sigmoid(dot(m.weights, row) + m.bias)
		errTerm := y[i] - pred
		for j := range m.weights {
			if j < len(row) {
				m.weights[j] += learningRate * errTerm * row[j]
			}
		}
		m.bias += learningRate * errTerm
	}
	m.samples += len(x)
	m.loaded = true
	return len(x)
}

// Samples returns the cumulative number of training samples seen.
func (m *CompletionModel) Samples() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.samples
}

type completionModelSnapshot struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Samples int       `json:"samples"`
}

// Marshal serializes the model for persistence (keyed per user by the caller).
func (m *CompletionModel) Marshal() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return json.Marshal(completionModelSnapshot{Weights: m.weights, Bias: m.bias, Samples: m.samples})
}

// Unmarshal restores a previously marshaled model. Returns false on bad data.
func (m *CompletionModel) Unmarshal(data []byte) bool {
	var snap completionModelSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weights = snap.Weights
	m.bias = snap.Bias
	m.samples = snap.Samples
	m.loaded = true
	return true
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
