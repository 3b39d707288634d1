package cli

import (
	"fmt"
	"os"

	urfave "github.com/urfave/cli/v2"

	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/artifact"
)

var (
	predictFileFlag = &urfave.StringFlag{
		Name:     "file",
		Usage:    "Path to a JSON file with one order object or an array of them",
		Required: true,
	}

	predictCmd = &urfave.Command{
		Name:    "predict",
		Aliases: []string{"p"},
		Usage:   "Score orders from a file using the trained artifacts",
		Action:  cmdPredict,
		Flags: []urfave.Flag{
			predictFileFlag,
		},
	}
)

func cmdPredict(c *urfave.Context) error {
	cfg := getConfig(c)

	b, err := os.ReadFile(c.String(predictFileFlag.Name))
	if err != nil {
		return fmt.Errorf("reading orders file: %w", err)
	}

	orders, err := parseOrdersPayload(b)
	if err != nil {
		return fmt.Errorf("parsing orders file: %w", err)
	}

	cache := artifact.NewCache(cfg.Conf.ModelPath, cfg.Conf.HistoryPath, cfg.Conf.GeoPath)
	predictions, err := scoreOrders(cache, orders)
	if err != nil {
		return err
	}

	return printResult(predictions)
}
