package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_AggregatesPerSeller(t *testing.T) {
	obs := []Observation{
		{SellerID: "S1", Late: true},
		{SellerID: "S1", Late: false},
		{SellerID: "S1", Late: false},
		{SellerID: "S1", Late: false},
		{SellerID: "S2", Late: true},
	}

	table, err := Build(obs)
	require.NoError(t, err)
	require.Len(t, table.Stats, 2)

	s1 := table.Stats["S1"]
	assert.InDelta(t, 0.25, s1.LateRate, 1e-9)
	assert.Equal(t, 4, s1.OrderCount)

	s2 := table.Stats["S2"]
	assert.InDelta(t, 1.0, s2.LateRate, 1e-9)
	assert.Equal(t, 1, s2.OrderCount)
}

func TestBuild_GlobalLateRate(t *testing.T) {
	obs := []Observation{
		{SellerID: "S1", Late: false},
		{SellerID: "S2", Late: true},
	}

	table, err := Build(obs)
	require.NoError(t, err)

	// Mean of per-seller rates (0.0 and 1.0), not of raw rows.
	assert.InDelta(t, 0.5, table.GlobalLateRate, 1e-9)
}

func TestBuild_Empty(t *testing.T) {
	_, err := Build(nil)
	assert.Error(t, err)
}

func TestLookup_KnownSeller(t *testing.T) {
	table, err := Build([]Observation{
		{SellerID: "S1", Late: true},
		{SellerID: "S1", Late: false},
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.5, table.Lookup("S1"), 1e-9)
}

func TestLookup_UnseenSellerFallsBackToGlobalMean(t *testing.T) {
	table := &Table{
		Stats: map[string]Stat{
			"S1": {SellerID: "S1", LateRate: 0.2, OrderCount: 10},
			"S2": {SellerID: "S2", LateRate: 0.5, OrderCount: 4},
		},
		GlobalLateRate: 0.35,
	}

	got := table.Lookup("S999")
	assert.InDelta(t, 0.35, got, 1e-9)
	assert.NotZero(t, got)
}
