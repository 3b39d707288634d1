package data

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/geo"
)

const selectRawGeoSamplesSQL = `SELECT
		geolocation_zip_code_prefix,
		geolocation_lat,
		geolocation_lng
	FROM geolocation
	WHERE geolocation_zip_code_prefix IS NOT NULL
	  AND geolocation_lat IS NOT NULL
	  AND geolocation_lng IS NOT NULL
`

// LoadRawGeoSamples reads all raw geolocation readings from the warehouse.
// Deduplication is the geo resolver's job.
func LoadRawGeoSamples(db *sql.DB) ([]geo.Sample, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectRawGeoSamplesSQL)
	if err != nil {
		return nil, fmt.Errorf("querying geolocation samples: %w", err)
	}
	defer rows.Close()

	samples := make([]geo.Sample, 0)
	for rows.Next() {
		var s geo.Sample
		if err := rows.Scan(&s.ZipPrefix, &s.Lat, &s.Lng); err != nil {
			return nil, fmt.Errorf("scanning geolocation row: %w", err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating geolocation rows: %w", err)
	}

	if len(samples) == 0 {
		return nil, errors.New("no geolocation samples in warehouse, run ingest first")
	}
	return samples, nil
}
