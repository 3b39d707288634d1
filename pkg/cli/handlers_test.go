package cli

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/artifact"
	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/geo"
	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/history"
	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/model"
	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/pipeline"
)

// testBundle wires a hand-built model: positive weight on the seller late
// rate, everything else neutral, so predictions are deterministic.
func testBundle() *artifact.Bundle {
	m := &model.Model{Bias: -1}
	for j := 0; j < pipeline.NumFeatures; j++ {
		m.Scales[j] = 1
	}
	m.Weights[1] = 4 // seller_late_rate

	return &artifact.Bundle{
		Model: m,
		History: &history.Table{
			Stats: map[string]history.Stat{
				"S1": {SellerID: "S1", LateRate: 0.2, OrderCount: 10},
			},
			GlobalLateRate: 0.35,
			MeanWeightG:    800,
		},
		Geo: geo.Table{
			14409: {ZipPrefix: 14409, Lat: -21.0, Lng: -47.0},
			1037:  {ZipPrefix: 1037, Lat: -23.5, Lng: -46.6},
		},
	}
}

func testCache() *artifact.Cache {
	return artifact.NewCacheWithLoader(func() (*artifact.Bundle, error) {
		return testBundle(), nil
	})
}

func doPredict(t *testing.T, cache *artifact.Cache, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	w := httptest.NewRecorder()
	makeRouter(cache).ServeHTTP(w, req)
	return w
}

func TestPredictAPI_SingleOrder(t *testing.T) {
	body := `{
		"order_id": "o1",
		"seller_id": "S1",
		"seller_zip_code_prefix": 14409,
		"customer_zip_code_prefix": 14409,
		"product_weight_g": 500,
		"freight_value": 15.0,
		"price": 50.0
	}`

	w := doPredict(t, testCache(), body)
	require.Equal(t, http.StatusOK, w.Code)

	var preds []*model.Prediction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preds))
	require.Len(t, preds, 1)
	assert.Equal(t, "o1", preds[0].OrderID)
	assert.GreaterOrEqual(t, preds[0].DelayRiskProbability, 0.0)
	assert.LessOrEqual(t, preds[0].DelayRiskProbability, 1.0)
}

func TestPredictAPI_ArrayOrdersCorrelated(t *testing.T) {
	body := `[
		{"order_id": "a", "seller_id": "S1", "seller_zip_code_prefix": 14409,
		 "customer_zip_code_prefix": 14409, "product_weight_g": 500,
		 "freight_value": 15.0, "price": 50.0},
		{"order_id": "b", "seller_id": "S1", "seller_zip_code_prefix": 14409,
		 "customer_zip_code_prefix": 1037, "product_weight_g": 300,
		 "freight_value": 10.0, "price": 25.0}
	]`

	w := doPredict(t, testCache(), body)
	require.Equal(t, http.StatusOK, w.Code)

	var preds []*model.Prediction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preds))
	require.Len(t, preds, 2)
	assert.Equal(t, "a", preds[0].OrderID)
	assert.Equal(t, "b", preds[1].OrderID)
}

func TestPredictAPI_UnseenSellerStillScored(t *testing.T) {
	body := `{
		"seller_id": "S999",
		"seller_zip_code_prefix": 14409,
		"customer_zip_code_prefix": 14409,
		"product_weight_g": 500,
		"freight_value": 15.0,
		"price": 50.0
	}`

	w := doPredict(t, testCache(), body)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPredictAPI_UnresolvableZip(t *testing.T) {
	body := `{
		"seller_id": "S1",
		"seller_zip_code_prefix": 14409,
		"customer_zip_code_prefix": 99999,
		"product_weight_g": 500,
		"freight_value": 15.0,
		"price": 50.0
	}`

	w := doPredict(t, testCache(), body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Contains(t, payload["error"], "no usable rows")
}

func TestPredictAPI_MissingRequiredFields(t *testing.T) {
	body := `{"seller_id": "S1", "price": 50.0}`

	w := doPredict(t, testCache(), body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Contains(t, payload["error"], "customer_zip_code_prefix")
	assert.Contains(t, payload["error"], "freight_value")
}

func TestPredictAPI_MalformedJSON(t *testing.T) {
	w := doPredict(t, testCache(), `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictAPI_EmptyBody(t *testing.T) {
	w := doPredict(t, testCache(), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictAPI_ArtifactLoadFailure(t *testing.T) {
	cache := artifact.NewCacheWithLoader(func() (*artifact.Bundle, error) {
		return nil, errors.New("model file missing")
	})

	body := `{
		"seller_id": "S1",
		"seller_zip_code_prefix": 14409,
		"customer_zip_code_prefix": 14409,
		"product_weight_g": 500,
		"freight_value": 15.0,
		"price": 50.0
	}`

	w := doPredict(t, cache, body)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	makeRouter(testCache()).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload["status"])
}

func TestParseOrdersPayload_Single(t *testing.T) {
	orders, err := parseOrdersPayload([]byte(`{
		"seller_id": "S1",
		"seller_zip_code_prefix": 14409,
		"customer_zip_code_prefix": 1037,
		"product_weight_g": 500,
		"freight_value": 15.0,
		"price": 50.0
	}`))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "S1", orders[0].SellerID)
	assert.Equal(t, 14409, orders[0].SellerZipPrefix)
	require.NotNil(t, orders[0].ProductWeightG)
	assert.Equal(t, 500.0, *orders[0].ProductWeightG)
}

func TestParseOrdersPayload_MissingFields(t *testing.T) {
	_, err := parseOrdersPayload([]byte(`[{"price": 1.0}]`))

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 0, reqErr.Row)
	assert.Contains(t, reqErr.Fields, "seller_id")
	assert.Contains(t, reqErr.Fields, "product_weight_g")
}

func TestParseOrdersPayload_EmptyArray(t *testing.T) {
	_, err := parseOrdersPayload([]byte(`[]`))
	assert.Error(t, err)
}

func TestScoringErrorStatus(t *testing.T) {
	status, _ := scoringErrorStatus(pipeline.ErrNoUsableRows)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = scoringErrorStatus(&model.SchemaError{Fields: []string{"price"}})
	assert.Equal(t, http.StatusInternalServerError, status)

	status, _ = scoringErrorStatus(ErrArtifactsUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = scoringErrorStatus(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
}
