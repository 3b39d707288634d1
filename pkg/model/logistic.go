package model

import (
	"errors"
	"math"
	"time"

	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/pipeline"
)

var (
	errNoLabeledRows = errors.New("no labeled rows to train on")
	errNotTrained    = errors.New("model has no trained coefficients")
)

// Model is the trained delay-risk scorer: a logistic regression over the
// standardized feature vector. It is persisted as an opaque artifact and
// reloaded at serving time.
type Model struct {
	Weights [pipeline.NumFeatures]float64 `json:"weights" yaml:"weights"`
	Bias    float64                       `json:"bias" yaml:"bias"`

	// Means and Scales standardize inputs with the training distribution.
	Means  [pipeline.NumFeatures]float64 `json:"feature_means" yaml:"featureMeans"`
	Scales [pipeline.NumFeatures]float64 `json:"feature_scales" yaml:"featureScales"`

	TrainedAt time.Time `json:"trained_at" yaml:"trainedAt"`
}

// TrainOptions control the gradient-descent fit.
type TrainOptions struct {
	Iterations   int     `json:"iterations" yaml:"iterations"`
	LearningRate float64 `json:"learning_rate" yaml:"learningRate"`

	// PosWeight up-weights the late class; deliveries are mostly on time.
	PosWeight float64 `json:"pos_weight" yaml:"posWeight"`
}

// DefaultTrainOptions mirror the historical production settings.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Iterations:   500,
		LearningRate: 0.1,
		PosWeight:    10,
	}
}

// Train fits the model on labeled feature vectors with full-batch gradient
// descent on the weighted logistic loss. Unlabeled vectors are skipped.
// The fit is deterministic: same input, same model.
func Train(vectors []pipeline.FeatureVector, opts TrainOptions) (*Model, error) {
	var xs [][pipeline.NumFeatures]float64
	var ys []float64
	for i := range vectors {
		if vectors[i].Late == nil {
			continue
		}
		y := 0.0
		if *vectors[i].Late {
			y = 1.0
		}
		xs = append(xs, vectors[i].Values())
		ys = append(ys, y)
	}
	if len(xs) == 0 {
		return nil, errNoLabeledRows
	}

	if opts.Iterations <= 0 || opts.LearningRate <= 0 {
		return nil, errors.New("iterations and learning rate must be positive")
	}
	if opts.PosWeight <= 0 {
		opts.PosWeight = 1
	}

	m := &Model{TrainedAt: time.Now().UTC()}
	m.fitStandardization(xs)

	n := float64(len(xs))
	for iter := 0; iter < opts.Iterations; iter++ {
		var gradW [pipeline.NumFeatures]float64
		gradB := 0.0

		for i, x := range xs {
			z := m.Bias
			for j := 0; j < pipeline.NumFeatures; j++ {
				z += m.Weights[j] * m.standardize(j, x[j])
			}
			p := sigmoid(z)

			w := 1.0
			if ys[i] == 1 {
				w = opts.PosWeight
			}
			residual := w * (p - ys[i])

			for j := 0; j < pipeline.NumFeatures; j++ {
				gradW[j] += residual * m.standardize(j, x[j])
			}
			gradB += residual
		}

		for j := 0; j < pipeline.NumFeatures; j++ {
			m.Weights[j] -= opts.LearningRate * gradW[j] / n
		}
		m.Bias -= opts.LearningRate * gradB / n
	}

	return m, nil
}

// Proba returns the probability that the order arrives late.
func (m *Model) Proba(v *pipeline.FeatureVector) float64 {
	z := m.Bias
	vals := v.Values()
	for j := 0; j < pipeline.NumFeatures; j++ {
		z += m.Weights[j] * m.standardize(j, vals[j])
	}
	return sigmoid(z)
}

func (m *Model) fitStandardization(xs [][pipeline.NumFeatures]float64) {
	n := float64(len(xs))
	for j := 0; j < pipeline.NumFeatures; j++ {
		sum := 0.0
		for _, x := range xs {
			sum += x[j]
		}
		m.Means[j] = sum / n

		varSum := 0.0
		for _, x := range xs {
			d := x[j] - m.Means[j]
			varSum += d * d
		}
		m.Scales[j] = math.Sqrt(varSum / n)
		if m.Scales[j] == 0 {
			m.Scales[j] = 1
		}
	}
}

func (m *Model) standardize(j int, v float64) float64 {
	return (v - m.Means[j]) / m.Scales[j]
}

func (m *Model) validate() error {
	allZero := m.Bias == 0
	for j := 0; j < pipeline.NumFeatures; j++ {
		if m.Weights[j] != 0 {
			allZero = false
		}
		if m.Scales[j] == 0 {
			return errNotTrained
		}
	}
	if allZero {
		return errNotTrained
	}
	return nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// Metrics summarize a labeled evaluation split.
type Metrics struct {
	Rows      int     `json:"rows" yaml:"rows"`
	LateRate  float64 `json:"late_rate" yaml:"lateRate"`
	Accuracy  float64 `json:"accuracy" yaml:"accuracy"`
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
}

// Evaluate scores labeled vectors and reports classification metrics at the
// fixed decision threshold.
func (m *Model) Evaluate(vectors []pipeline.FeatureVector) (*Metrics, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	var tp, fp, tn, fn int
	for i := range vectors {
		if vectors[i].Late == nil {
			continue
		}
		pred := m.Proba(&vectors[i]) > highRiskThreshold
		switch {
		case pred && *vectors[i].Late:
			tp++
		case pred && !*vectors[i].Late:
			fp++
		case !pred && *vectors[i].Late:
			fn++
		default:
			tn++
		}
	}

	total := tp + fp + tn + fn
	if total == 0 {
		return nil, errNoLabeledRows
	}

	met := &Metrics{
		Rows:     total,
		LateRate: float64(tp+fn) / float64(total),
		Accuracy: float64(tp+tn) / float64(total),
	}
	if tp+fp > 0 {
		met.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		met.Recall = float64(tp) / float64(tp+fn)
	}
	return met, nil
}

// Split partitions vectors into train and test sets at the given test
// fraction, preserving order. Callers rely on the warehouse's stable sort
// for reproducible splits.
func Split(vectors []pipeline.FeatureVector, testFraction float64) (train, test []pipeline.FeatureVector) {
	if testFraction <= 0 || testFraction >= 1 {
		return vectors, nil
	}
	cut := len(vectors) - int(float64(len(vectors))*testFraction)
	return vectors[:cut], vectors[cut:]
}
