package history

import "errors"

var errNoObservations = errors.New("no delivery observations provided")

// Stat is the aggregated lateness record for one seller.
type Stat struct {
	SellerID   string  `json:"seller_id" yaml:"sellerId"`
	LateRate   float64 `json:"late_rate" yaml:"lateRate"`
	OrderCount int     `json:"order_count" yaml:"orderCount"`
}

// Observation is one historical delivery with a known outcome.
type Observation struct {
	SellerID string
	Late     bool
}

// Table is the persisted seller-history artifact. It is computed once at
// training time and reused verbatim at inference time; recomputing it from
// a live request batch would leak the target and break train/serve parity.
type Table struct {
	Stats map[string]Stat `json:"stats" yaml:"stats"`

	// GlobalLateRate is the mean of all seller late rates, precomputed at
	// build time. It is the fallback for sellers unseen during training.
	GlobalLateRate float64 `json:"global_late_rate" yaml:"globalLateRate"`

	// MeanWeightG is the mean product weight of the training batch, frozen
	// here so serving-time imputation never depends on the request batch.
	MeanWeightG float64 `json:"mean_weight_g" yaml:"meanWeightG"`
}

// Build aggregates per-seller lateness from historical deliveries. Only
// rows with a known delivery outcome belong in the input.
func Build(observations []Observation) (*Table, error) {
	if len(observations) == 0 {
		return nil, errNoObservations
	}

	type acc struct {
		late, total int
	}

	counts := make(map[string]*acc)
	for _, o := range observations {
		a, ok := counts[o.SellerID]
		if !ok {
			a = &acc{}
			counts[o.SellerID] = a
		}
		if o.Late {
			a.late++
		}
		a.total++
	}

	t := &Table{Stats: make(map[string]Stat, len(counts))}
	sum := 0.0
	for id, a := range counts {
		rate := float64(a.late) / float64(a.total)
		t.Stats[id] = Stat{SellerID: id, LateRate: rate, OrderCount: a.total}
		sum += rate
	}
	t.GlobalLateRate = sum / float64(len(t.Stats))

	return t, nil
}

// Lookup returns the stored late rate for a seller, falling back to the
// table's global mean for sellers not seen at training time.
func (t *Table) Lookup(sellerID string) float64 {
	if s, ok := t.Stats[sellerID]; ok {
		return s.LateRate
	}
	return t.GlobalLateRate
}
