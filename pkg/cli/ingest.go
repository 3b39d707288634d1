package cli

import (
	"fmt"

	urfave "github.com/urfave/cli/v2"

	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/data"
	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/net"
)

var (
	csvDirFlag = &urfave.StringFlag{
		Name:  "dir",
		Usage: "Directory with the raw Olist CSV files (default: configured csvDir)",
	}

	datasetURLFlag = &urfave.StringFlag{
		Name:  "url",
		Usage: "Base URL to download missing CSV files from (default: configured datasetUrl)",
	}

	ingestCmd = &urfave.Command{
		Name:    "ingest",
		Aliases: []string{"i"},
		Usage:   "Load the raw Olist CSVs into the warehouse and build the master table",
		Action:  cmdIngest,
		Flags: []urfave.Flag{
			csvDirFlag,
			datasetURLFlag,
		},
	}
)

func cmdIngest(c *urfave.Context) error {
	cfg := getConfig(c)

	dir := c.String(csvDirFlag.Name)
	if dir == "" {
		dir = cfg.Conf.CSVDir
	}

	url := c.String(datasetURLFlag.Name)
	if url == "" {
		url = cfg.Conf.DatasetURL
	}
	if url != "" {
		if err := net.FetchMissing(url, dir, data.CSVFileNames()); err != nil {
			return fmt.Errorf("fetching dataset: %w", err)
		}
	}

	res, err := data.IngestCSVDir(c.Context, cfg.DB, dir)
	if err != nil {
		return fmt.Errorf("ingesting CSVs: %w", err)
	}

	return printResult(res)
}
