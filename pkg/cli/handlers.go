package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/artifact"
	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/model"
	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/pipeline"
)

const maxRequestBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// RequestError reports scoring request rows that cannot be used, with the
// names of the fields they are missing.
type RequestError struct {
	Row    int
	Fields []string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("row %d: missing required fields: %s", e.Row, strings.Join(e.Fields, ", "))
}

// predictRequestRow is the request-boundary shape of one order. Pointer
// fields distinguish absent from zero.
type predictRequestRow struct {
	OrderID           string   `json:"order_id"`
	SellerID          *string  `json:"seller_id"`
	SellerZipPrefix   *int     `json:"seller_zip_code_prefix"`
	CustomerZipPrefix *int     `json:"customer_zip_code_prefix"`
	ProductWeightG    *float64 `json:"product_weight_g"`
	FreightValue      *float64 `json:"freight_value"`
	Price             *float64 `json:"price"`
}

func (r *predictRequestRow) missingFields() []string {
	var missing []string
	if r.SellerID == nil || *r.SellerID == "" {
		missing = append(missing, "seller_id")
	}
	if r.SellerZipPrefix == nil {
		missing = append(missing, "seller_zip_code_prefix")
	}
	if r.CustomerZipPrefix == nil {
		missing = append(missing, "customer_zip_code_prefix")
	}
	if r.ProductWeightG == nil {
		missing = append(missing, "product_weight_g")
	}
	if r.FreightValue == nil {
		missing = append(missing, "freight_value")
	}
	if r.Price == nil {
		missing = append(missing, "price")
	}
	sort.Strings(missing)
	return missing
}

func (r *predictRequestRow) order() pipeline.Order {
	return pipeline.Order{
		OrderID:           r.OrderID,
		SellerID:          *r.SellerID,
		SellerZipPrefix:   *r.SellerZipPrefix,
		CustomerZipPrefix: *r.CustomerZipPrefix,
		ProductWeightG:    r.ProductWeightG,
		FreightValue:      *r.FreightValue,
		Price:             *r.Price,
	}
}

// parseOrdersPayload accepts a single order object or an array of them.
func parseOrdersPayload(b []byte) ([]pipeline.Order, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return nil, errors.New("empty request body")
	}

	var rows []predictRequestRow
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("parsing order array: %w", err)
		}
	} else {
		var row predictRequestRow
		if err := json.Unmarshal(trimmed, &row); err != nil {
			return nil, fmt.Errorf("parsing order: %w", err)
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, errors.New("no orders in request")
	}

	orders := make([]pipeline.Order, 0, len(rows))
	for i := range rows {
		if missing := rows[i].missingFields(); len(missing) > 0 {
			return nil, &RequestError{Row: i, Fields: missing}
		}
		orders = append(orders, rows[i].order())
	}
	return orders, nil
}

// ErrArtifactsUnavailable wraps a failed artifact bundle load.
var ErrArtifactsUnavailable = errors.New("scoring artifacts unavailable")

// scoreOrders runs the serving path: cached artifacts, serving-mode
// transform, and the model.
func scoreOrders(cache *artifact.Cache, orders []pipeline.Order) ([]*model.Prediction, error) {
	bundle, err := cache.Get()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactsUnavailable, err)
	}

	vectors, err := pipeline.TransformWithHistory(orders, bundle.Geo, bundle.History)
	if err != nil {
		return nil, err
	}

	return bundle.Model.Score(vectors)
}

func predictAPIHandler(cache *artifact.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		log := slog.With("request_id", reqID)

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
		if err != nil {
			log.Error("failed to read request body", "error", err)
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		orders, err := parseOrdersPayload(body)
		if err != nil {
			log.Debug("rejected scoring request", "error", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		predictions, err := scoreOrders(cache, orders)
		if err != nil {
			status, msg := scoringErrorStatus(err)
			if status >= http.StatusInternalServerError {
				log.Error("scoring failed", "error", err)
			} else {
				log.Debug("scoring rejected", "error", err)
			}
			writeError(w, status, msg)
			return
		}

		log.Info("scored orders", "requested", len(orders), "scored", len(predictions))
		writeJSON(w, http.StatusOK, predictions)
	}
}

// scoringErrorStatus maps the scoring error taxonomy to HTTP statuses:
// unusable input is the caller's problem, schema defects and artifact
// failures are ours.
func scoringErrorStatus(err error) (int, string) {
	var schemaErr *model.SchemaError
	switch {
	case errors.Is(err, pipeline.ErrNoUsableRows):
		return http.StatusUnprocessableEntity,
			"no usable rows after preprocessing, check zip code prefixes"
	case errors.As(err, &schemaErr):
		return http.StatusInternalServerError, schemaErr.Error()
	case errors.Is(err, ErrArtifactsUnavailable):
		return http.StatusServiceUnavailable, ErrArtifactsUnavailable.Error()
	default:
		return http.StatusInternalServerError, "scoring failed"
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
}
