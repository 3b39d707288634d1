package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/pipeline"
)

func boolPtr(v bool) *bool { return &v }

// trainingBatch builds a separable batch: high seller late rate and long
// distance mean late, the rest mean on time.
func trainingBatch() []pipeline.FeatureVector {
	var vectors []pipeline.FeatureVector
	for i := 0; i < 40; i++ {
		late := i%4 == 0
		rate := 0.05
		dist := 50.0
		if late {
			rate = 0.6
			dist = 1500.0
		}
		vectors = append(vectors, pipeline.FeatureVector{
			DistanceKM:     dist + float64(i),
			SellerLateRate: rate,
			ProductWeightG: 500 + float64(i*10),
			FreightValue:   15,
			Price:          50,
			Late:           boolPtr(late),
		})
	}
	return vectors
}

func TestTrain_ProducesCalibratedDirection(t *testing.T) {
	m, err := Train(trainingBatch(), DefaultTrainOptions())
	require.NoError(t, err)

	risky := pipeline.FeatureVector{
		DistanceKM:     1500,
		SellerLateRate: 0.6,
		ProductWeightG: 500,
		FreightValue:   15,
		Price:          50,
	}
	safe := pipeline.FeatureVector{
		DistanceKM:     50,
		SellerLateRate: 0.05,
		ProductWeightG: 500,
		FreightValue:   15,
		Price:          50,
	}

	pRisky := m.Proba(&risky)
	pSafe := m.Proba(&safe)

	assert.Greater(t, pRisky, pSafe)
	assert.Greater(t, pRisky, 0.0)
	assert.Less(t, pRisky, 1.0)
}

func TestTrain_Deterministic(t *testing.T) {
	batch := trainingBatch()

	m1, err := Train(batch, DefaultTrainOptions())
	require.NoError(t, err)
	m2, err := Train(batch, DefaultTrainOptions())
	require.NoError(t, err)

	assert.Equal(t, m1.Weights, m2.Weights)
	assert.Equal(t, m1.Bias, m2.Bias)
}

func TestTrain_MonotoneInLateRate(t *testing.T) {
	m, err := Train(trainingBatch(), DefaultTrainOptions())
	require.NoError(t, err)

	v := pipeline.FeatureVector{
		DistanceKM:     400,
		SellerLateRate: 0.1,
		ProductWeightG: 500,
		FreightValue:   15,
		Price:          50,
	}
	low := m.Proba(&v)
	v.SellerLateRate = 0.9
	high := m.Proba(&v)

	assert.Greater(t, high, low)
}

func TestTrain_NoLabels(t *testing.T) {
	vectors := []pipeline.FeatureVector{{DistanceKM: 10}}
	_, err := Train(vectors, DefaultTrainOptions())
	assert.Error(t, err)
}

func TestTrain_BadOptions(t *testing.T) {
	_, err := Train(trainingBatch(), TrainOptions{Iterations: 0, LearningRate: 0.1})
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	batch := trainingBatch()
	m, err := Train(batch, DefaultTrainOptions())
	require.NoError(t, err)

	met, err := m.Evaluate(batch)
	require.NoError(t, err)
	assert.Equal(t, 40, met.Rows)
	assert.InDelta(t, 0.25, met.LateRate, 1e-9)
	assert.Greater(t, met.Accuracy, 0.5)
}

func TestEvaluate_Untrained(t *testing.T) {
	m := &Model{}
	_, err := m.Evaluate(trainingBatch())
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	batch := trainingBatch()
	train, test := Split(batch, 0.2)
	assert.Len(t, train, 32)
	assert.Len(t, test, 8)

	all, none := Split(batch, 0)
	assert.Len(t, all, 40)
	assert.Empty(t, none)
}

func TestProba_Bounded(t *testing.T) {
	m, err := Train(trainingBatch(), DefaultTrainOptions())
	require.NoError(t, err)

	v := pipeline.FeatureVector{
		DistanceKM:     1e6,
		SellerLateRate: 1,
		ProductWeightG: 1e6,
		FreightValue:   1e6,
		Price:          1e6,
	}
	p := m.Proba(&v)
	assert.False(t, math.IsNaN(p))
	assert.GreaterOrEqual(t, p, 0.0)
	assert.LessOrEqual(t, p, 1.0)
}
