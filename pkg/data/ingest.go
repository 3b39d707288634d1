package data

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const createMasterTableSQL = `CREATE TABLE master_analytics_table AS
	SELECT
		o.order_id,
		o.customer_id,
		o.order_status,
		o.order_purchase_timestamp,
		o.order_delivered_customer_date,
		o.order_estimated_delivery_date,
		oi.seller_id,

		CASE
			WHEN o.order_delivered_customer_date > o.order_estimated_delivery_date THEN 1
			ELSE 0
		END AS is_late,

		oi.price,
		oi.freight_value,

		p.product_weight_g,
		p.product_category_name,

		s.seller_zip_code_prefix,
		s.seller_state,
		c.customer_zip_code_prefix,
		c.customer_state,

		r.review_score

	FROM orders o
	JOIN order_items oi ON o.order_id = oi.order_id
	LEFT JOIN products p ON oi.product_id = p.product_id
	LEFT JOIN sellers s ON oi.seller_id = s.seller_id
	LEFT JOIN customers c ON o.customer_id = c.customer_id
	LEFT JOIN order_reviews r ON o.order_id = r.order_id

	WHERE o.order_status = 'delivered'
	  AND o.order_delivered_customer_date IS NOT NULL
`

// csvTable maps one raw Olist CSV to its warehouse table. Column names
// match the CSV headers; any extra CSV columns are ignored.
type csvTable struct {
	file    string
	table   string
	columns []string
}

var csvTables = []csvTable{
	{
		file:    "olist_orders_dataset.csv",
		table:   "orders",
		columns: []string{"order_id", "customer_id", "order_status", "order_purchase_timestamp", "order_delivered_customer_date", "order_estimated_delivery_date"},
	},
	{
		file:    "olist_order_items_dataset.csv",
		table:   "order_items",
		columns: []string{"order_id", "product_id", "seller_id", "price", "freight_value"},
	},
	{
		file:    "olist_products_dataset.csv",
		table:   "products",
		columns: []string{"product_id", "product_category_name", "product_weight_g"},
	},
	{
		file:    "olist_sellers_dataset.csv",
		table:   "sellers",
		columns: []string{"seller_id", "seller_zip_code_prefix", "seller_state"},
	},
	{
		file:    "olist_customers_dataset.csv",
		table:   "customers",
		columns: []string{"customer_id", "customer_zip_code_prefix", "customer_state"},
	},
	{
		file:    "olist_order_reviews_dataset.csv",
		table:   "order_reviews",
		columns: []string{"order_id", "review_score"},
	},
	{
		file:    "olist_geolocation_dataset.csv",
		table:   "geolocation",
		columns: []string{"geolocation_zip_code_prefix", "geolocation_lat", "geolocation_lng"},
	},
}

// CSVFileNames lists the raw dataset files the ingest expects.
func CSVFileNames() []string {
	names := make([]string, 0, len(csvTables))
	for _, ct := range csvTables {
		names = append(names, ct.file)
	}
	return names
}

// IngestResult summarizes a warehouse load.
type IngestResult struct {
	Tables     map[string]int `json:"tables" yaml:"tables"`
	MasterRows int            `json:"master_rows" yaml:"masterRows"`
	Duration   string         `json:"duration" yaml:"duration"`
}

// IngestCSVDir loads the raw Olist CSV files found in dir into the
// warehouse tables and rebuilds the master analytics table. Files are
// loaded concurrently; a missing file fails the whole ingest.
func IngestCSVDir(ctx context.Context, db *sql.DB, dir string) (*IngestResult, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if dir == "" {
		return nil, errors.New("csv directory not specified")
	}

	start := time.Now()
	res := &IngestResult{Tables: make(map[string]int, len(csvTables))}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, ct := range csvTables {
		g.Go(func() error {
			n, err := loadCSVTable(ctx, db, filepath.Join(dir, ct.file), ct)
			if err != nil {
				return fmt.Errorf("loading %s: %w", ct.file, err)
			}
			slog.Debug("table loaded", "table", ct.table, "rows", n)
			mu.Lock()
			res.Tables[ct.table] = n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n, err := BuildMasterTable(db)
	if err != nil {
		return nil, err
	}
	res.MasterRows = n
	res.Duration = time.Since(start).String()

	return res, nil
}

func loadCSVTable(ctx context.Context, db *sql.DB, path string, ct csvTable) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("reading header: %w", err)
	}

	// Map wanted columns to their CSV positions.
	idx := make([]int, len(ct.columns))
	for i, col := range ct.columns {
		idx[i] = -1
		for j, h := range header {
			if strings.TrimSpace(h) == col {
				idx[i] = j
				break
			}
		}
		if idx[i] == -1 {
			return 0, fmt.Errorf("column %s not found in %s", col, path)
		}
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM "+ct.table); err != nil {
		return 0, fmt.Errorf("clearing table %s: %w", ct.table, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ct.columns)), ", ")
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ct.table, strings.Join(ct.columns, ", "), placeholders)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing insert for %s: %w", ct.table, err)
	}
	defer stmt.Close()

	count := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("reading row %d: %w", count+1, err)
		}

		vals := make([]any, len(idx))
		for i, j := range idx {
			// Empty CSV fields land as NULLs so the master table's
			// IS NOT NULL filters behave.
			if j >= len(record) || record[j] == "" {
				vals[i] = nil
				continue
			}
			vals[i] = record[j]
		}

		if _, err := stmt.Exec(vals...); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("inserting row %d into %s: %w", count+1, ct.table, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing %s load: %w", ct.table, err)
	}
	return count, nil
}

// BuildMasterTable rebuilds the master analytics table from the raw
// tables: delivered orders only, one row per order item, with the lateness
// label computed in SQL. Product weight is left nullable; imputation is
// the feature pipeline's job.
func BuildMasterTable(db *sql.DB) (int, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}

	if _, err := db.Exec("DROP TABLE IF EXISTS master_analytics_table"); err != nil {
		return 0, fmt.Errorf("dropping master table: %w", err)
	}
	if _, err := db.Exec(createMasterTableSQL); err != nil {
		return 0, fmt.Errorf("creating master table: %w", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM master_analytics_table").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting master table rows: %w", err)
	}

	slog.Debug("master table built", "rows", count)
	return count, nil
}
