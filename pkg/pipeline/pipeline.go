package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/geo"
	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/history"
)

// NumFeatures is the width of the feature vector consumed by the scorer.
const NumFeatures = 5

// FeatureNames lists the feature fields in scoring order.
var FeatureNames = [NumFeatures]string{
	"distance_km",
	"seller_late_rate",
	"product_weight_g",
	"freight_value",
	"price",
}

// ErrNoUsableRows is returned when the admission rule dropped every row in
// the batch. Callers must surface it, never report an empty success.
var ErrNoUsableRows = errors.New("no usable rows after preprocessing")

// Order is one order-item row entering the pipeline, either read from the
// warehouse or supplied by a scoring request.
type Order struct {
	OrderID           string   `json:"order_id,omitempty" yaml:"orderId,omitempty"`
	SellerID          string   `json:"seller_id" yaml:"sellerId"`
	SellerZipPrefix   int      `json:"seller_zip_code_prefix" yaml:"sellerZipCodePrefix"`
	CustomerZipPrefix int      `json:"customer_zip_code_prefix" yaml:"customerZipCodePrefix"`
	ProductWeightG    *float64 `json:"product_weight_g,omitempty" yaml:"productWeightG,omitempty"`
	FreightValue      float64  `json:"freight_value" yaml:"freightValue"`
	Price             float64  `json:"price" yaml:"price"`

	// Late is the known delivery outcome. Only historical warehouse rows
	// carry it; scoring requests leave it nil.
	Late *bool `json:"-" yaml:"-"`
}

// FeatureVector is the exact, ordered input consumed by the scorer. Every
// field of a vector emitted by the pipeline is populated; there is no
// column probing downstream.
type FeatureVector struct {
	OrderID        string  `json:"order_id,omitempty" yaml:"orderId,omitempty"`
	DistanceKM     float64 `json:"distance_km" yaml:"distanceKm"`
	SellerLateRate float64 `json:"seller_late_rate" yaml:"sellerLateRate"`
	ProductWeightG float64 `json:"product_weight_g" yaml:"productWeightG"`
	FreightValue   float64 `json:"freight_value" yaml:"freightValue"`
	Price          float64 `json:"price" yaml:"price"`

	// Late carries the training label through to model fitting.
	Late *bool `json:"-" yaml:"-"`
}

// Values returns the feature fields in FeatureNames order.
func (v *FeatureVector) Values() [NumFeatures]float64 {
	return [NumFeatures]float64{
		v.DistanceKM,
		v.SellerLateRate,
		v.ProductWeightG,
		v.FreightValue,
		v.Price,
	}
}

// MissingFields names any feature field that is not a finite number.
func (v *FeatureVector) MissingFields() []string {
	var missing []string
	vals := v.Values()
	for i, val := range vals {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			missing = append(missing, FeatureNames[i])
		}
	}
	return missing
}

// BuildHistory runs the pipeline in training mode: the seller-history table
// is built from the batch itself and returned alongside the vectors so the
// caller can persist it. The training-batch mean product weight is frozen
// into the table for serving-time imputation.
func BuildHistory(orders []Order, geoTable geo.Table) ([]FeatureVector, *history.Table, error) {
	obs := make([]history.Observation, 0, len(orders))
	for _, o := range orders {
		if o.Late == nil {
			continue
		}
		obs = append(obs, history.Observation{SellerID: o.SellerID, Late: *o.Late})
	}

	table, err := history.Build(obs)
	if err != nil {
		return nil, nil, fmt.Errorf("building seller history: %w", err)
	}
	table.MeanWeightG = meanKnownWeight(orders)

	vectors, err := transform(orders, geoTable, table)
	if err != nil {
		return nil, nil, err
	}
	return vectors, table, nil
}

// TransformWithHistory runs the pipeline in serving mode against a
// previously trained seller-history table. It never derives history or
// imputation values from the request batch.
func TransformWithHistory(orders []Order, geoTable geo.Table, table *history.Table) ([]FeatureVector, error) {
	if table == nil {
		return nil, errors.New("seller history table is required")
	}
	return transform(orders, geoTable, table)
}

// transform applies the shared feature steps: geo join and distance,
// seller late rate, weight imputation, and finally the admission rule
// dropping rows without a resolvable distance.
func transform(orders []Order, geoTable geo.Table, table *history.Table) ([]FeatureVector, error) {
	vectors := make([]FeatureVector, 0, len(orders))
	dropped := 0

	for _, o := range orders {
		d, ok := resolveDistance(o, geoTable)
		if !ok {
			dropped++
			continue
		}

		weight := math.NaN()
		switch {
		case o.ProductWeightG != nil:
			weight = *o.ProductWeightG
		case table.MeanWeightG > 0:
			weight = table.MeanWeightG
		}

		vectors = append(vectors, FeatureVector{
			OrderID:        o.OrderID,
			DistanceKM:     d,
			SellerLateRate: table.Lookup(o.SellerID),
			ProductWeightG: weight,
			FreightValue:   o.FreightValue,
			Price:          o.Price,
			Late:           o.Late,
		})
	}

	if dropped > 0 {
		slog.Debug("dropped rows with unresolvable geography", "dropped", dropped, "kept", len(vectors))
	}

	if len(vectors) == 0 {
		return nil, ErrNoUsableRows
	}
	return vectors, nil
}

func resolveDistance(o Order, geoTable geo.Table) (float64, bool) {
	s, ok := geoTable.Lookup(o.SellerZipPrefix)
	if !ok {
		return 0, false
	}
	c, ok := geoTable.Lookup(o.CustomerZipPrefix)
	if !ok {
		return 0, false
	}
	return geo.Distance(s, c), true
}

func meanKnownWeight(orders []Order) float64 {
	sum := 0.0
	n := 0
	for _, o := range orders {
		if o.ProductWeightG != nil {
			sum += *o.ProductWeightG
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
