package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/pipeline"
)

// highRiskThreshold is the fixed decision boundary. Strictly greater than:
// a probability of exactly 0.5 is not high risk.
const highRiskThreshold = 0.5

// Prediction is one scored order.
type Prediction struct {
	OrderID              string  `json:"order_id,omitempty" yaml:"orderId,omitempty"`
	DelayRiskProbability float64 `json:"delay_risk_probability" yaml:"delayRiskProbability"`
	IsHighRisk           bool    `json:"is_high_risk" yaml:"isHighRisk"`
}

// SchemaError reports feature fields the pipeline failed to populate. This
// is a pipeline or artifact defect, not a data issue.
type SchemaError struct {
	Fields []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("unpopulated feature fields: %s", strings.Join(e.Fields, ", "))
}

// Score runs the model over a processed batch. It fails fast on an empty
// batch and on any vector with unpopulated fields rather than producing
// predictions from malformed input.
func (m *Model) Score(vectors []pipeline.FeatureVector) ([]*Prediction, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, pipeline.ErrNoUsableRows
	}

	missing := map[string]bool{}
	for i := range vectors {
		for _, f := range vectors[i].MissingFields() {
			missing[f] = true
		}
	}
	if len(missing) > 0 {
		fields := make([]string, 0, len(missing))
		for f := range missing {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		return nil, &SchemaError{Fields: fields}
	}

	predictions := make([]*Prediction, 0, len(vectors))
	for i := range vectors {
		p := m.Proba(&vectors[i])
		predictions = append(predictions, &Prediction{
			OrderID:              vectors[i].OrderID,
			DelayRiskProbability: p,
			IsHighRisk:           p > highRiskThreshold,
		})
	}
	return predictions, nil
}
