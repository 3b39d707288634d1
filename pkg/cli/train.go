package cli

import (
	"fmt"
	"log/slog"
	"time"

	urfave "github.com/urfave/cli/v2"

	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/artifact"
	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/data"
	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/geo"
	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/model"
	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/pipeline"
)

const testFractionDefault = 0.2

var (
	iterationsFlag = &urfave.IntFlag{
		Name:  "iterations",
		Usage: "Gradient descent iterations",
		Value: model.DefaultTrainOptions().Iterations,
	}

	learningRateFlag = &urfave.Float64Flag{
		Name:  "rate",
		Usage: "Gradient descent learning rate",
		Value: model.DefaultTrainOptions().LearningRate,
	}

	posWeightFlag = &urfave.Float64Flag{
		Name:  "pos-weight",
		Usage: "Weight multiplier for the late class",
		Value: model.DefaultTrainOptions().PosWeight,
	}

	testFractionFlag = &urfave.Float64Flag{
		Name:  "test-fraction",
		Usage: "Fraction of rows held out for evaluation",
		Value: testFractionDefault,
	}

	trainCmd = &urfave.Command{
		Name:    "train",
		Aliases: []string{"t"},
		Usage:   "Train the delay-risk model from warehoused orders and persist artifacts",
		Action:  cmdTrain,
		Flags: []urfave.Flag{
			iterationsFlag,
			learningRateFlag,
			posWeightFlag,
			testFractionFlag,
		},
	}
)

// TrainResult is the training run summary printed to the caller.
type TrainResult struct {
	Rows        int            `json:"rows" yaml:"rows"`
	UsableRows  int            `json:"usable_rows" yaml:"usableRows"`
	Sellers     int            `json:"sellers" yaml:"sellers"`
	GeoPrefixes int            `json:"geo_prefixes" yaml:"geoPrefixes"`
	Metrics     *model.Metrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	ModelPath   string         `json:"model_path" yaml:"modelPath"`
	HistoryPath string         `json:"history_path" yaml:"historyPath"`
	GeoPath     string         `json:"geo_path" yaml:"geoPath"`
	Duration    string         `json:"duration" yaml:"duration"`
}

func cmdTrain(c *urfave.Context) error {
	start := time.Now()
	cfg := getConfig(c)

	records, err := data.LoadHistoricalOrders(cfg.DB)
	if err != nil {
		return fmt.Errorf("loading historical orders: %w", err)
	}
	slog.Info("loaded historical orders", "rows", len(records))

	samples, err := data.LoadRawGeoSamples(cfg.DB)
	if err != nil {
		return fmt.Errorf("loading geo samples: %w", err)
	}

	geoTable, err := geo.Resolve(samples)
	if err != nil {
		return fmt.Errorf("resolving geo table: %w", err)
	}
	slog.Info("resolved geo table", "prefixes", len(geoTable), "samples", len(samples))

	orders := data.PipelineOrders(records)
	vectors, historyTable, err := pipeline.BuildHistory(orders, geoTable)
	if err != nil {
		return fmt.Errorf("preprocessing training data: %w", err)
	}
	slog.Info("preprocessed training data",
		"usable_rows", len(vectors),
		"sellers", len(historyTable.Stats))

	trainSet, testSet := model.Split(vectors, c.Float64(testFractionFlag.Name))

	opts := model.TrainOptions{
		Iterations:   c.Int(iterationsFlag.Name),
		LearningRate: c.Float64(learningRateFlag.Name),
		PosWeight:    c.Float64(posWeightFlag.Name),
	}
	m, err := model.Train(trainSet, opts)
	if err != nil {
		return fmt.Errorf("training model: %w", err)
	}

	res := &TrainResult{
		Rows:        len(records),
		UsableRows:  len(vectors),
		Sellers:     len(historyTable.Stats),
		GeoPrefixes: len(geoTable),
		ModelPath:   cfg.Conf.ModelPath,
		HistoryPath: cfg.Conf.HistoryPath,
		GeoPath:     cfg.Conf.GeoPath,
	}

	if len(testSet) > 0 {
		met, err := m.Evaluate(testSet)
		if err != nil {
			return fmt.Errorf("evaluating model: %w", err)
		}
		res.Metrics = met
		slog.Info("model evaluated",
			"rows", met.Rows,
			"accuracy", fmt.Sprintf("%.4f", met.Accuracy),
			"recall", fmt.Sprintf("%.4f", met.Recall))
	}

	if err := artifact.Save(cfg.Conf.ModelPath, m); err != nil {
		return fmt.Errorf("saving model: %w", err)
	}
	if err := artifact.Save(cfg.Conf.HistoryPath, historyTable); err != nil {
		return fmt.Errorf("saving seller history: %w", err)
	}
	if err := artifact.Save(cfg.Conf.GeoPath, geoTable); err != nil {
		return fmt.Errorf("saving geo table: %w", err)
	}

	res.Duration = time.Since(start).String()
	return printResult(res)
}
