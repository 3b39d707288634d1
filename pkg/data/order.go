package data

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/pipeline"
)

const selectHistoricalOrdersSQL = `SELECT
		order_id,
		customer_id,
		seller_id,
		order_purchase_timestamp,
		order_delivered_customer_date,
		order_estimated_delivery_date,
		is_late,
		price,
		freight_value,
		product_weight_g,
		seller_zip_code_prefix,
		customer_zip_code_prefix,
		review_score
	FROM master_analytics_table
	ORDER BY order_id, seller_id
`

// OrderRecord is one delivered (order, item) row from the master analytics
// table. Records are read-only; derived features live on pipeline vectors,
// never here.
type OrderRecord struct {
	OrderID               string   `json:"order_id" yaml:"orderId"`
	CustomerID            string   `json:"customer_id" yaml:"customerId"`
	SellerID              string   `json:"seller_id" yaml:"sellerId"`
	PurchaseTimestamp     string   `json:"order_purchase_timestamp" yaml:"orderPurchaseTimestamp"`
	DeliveredCustomerDate string   `json:"order_delivered_customer_date" yaml:"orderDeliveredCustomerDate"`
	EstimatedDeliveryDate string   `json:"order_estimated_delivery_date" yaml:"orderEstimatedDeliveryDate"`
	IsLate                bool     `json:"is_late" yaml:"isLate"`
	Price                 float64  `json:"price" yaml:"price"`
	FreightValue          float64  `json:"freight_value" yaml:"freightValue"`
	ProductWeightG        *float64 `json:"product_weight_g,omitempty" yaml:"productWeightG,omitempty"`
	SellerZipPrefix       int      `json:"seller_zip_code_prefix" yaml:"sellerZipCodePrefix"`
	CustomerZipPrefix     int      `json:"customer_zip_code_prefix" yaml:"customerZipCodePrefix"`
	ReviewScore           *int     `json:"review_score,omitempty" yaml:"reviewScore,omitempty"`
}

// PipelineOrder converts the record into the pipeline's input shape with
// the delivery outcome attached.
func (r *OrderRecord) PipelineOrder() pipeline.Order {
	late := r.IsLate
	return pipeline.Order{
		OrderID:           r.OrderID,
		SellerID:          r.SellerID,
		SellerZipPrefix:   r.SellerZipPrefix,
		CustomerZipPrefix: r.CustomerZipPrefix,
		ProductWeightG:    r.ProductWeightG,
		FreightValue:      r.FreightValue,
		Price:             r.Price,
		Late:              &late,
	}
}

// LoadHistoricalOrders reads all delivered order items from the master
// analytics table in a stable order.
func LoadHistoricalOrders(db *sql.DB) ([]OrderRecord, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectHistoricalOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("querying historical orders: %w", err)
	}
	defer rows.Close()

	list := make([]OrderRecord, 0)
	for rows.Next() {
		var r OrderRecord
		var customerID, purchase, delivered, estimated sql.NullString
		var price, freight, weight sql.NullFloat64
		var sellerZip, customerZip, review sql.NullInt64

		if err := rows.Scan(
			&r.OrderID,
			&customerID,
			&r.SellerID,
			&purchase,
			&delivered,
			&estimated,
			&r.IsLate,
			&price,
			&freight,
			&weight,
			&sellerZip,
			&customerZip,
			&review,
		); err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}

		r.CustomerID = customerID.String
		r.PurchaseTimestamp = purchase.String
		r.DeliveredCustomerDate = delivered.String
		r.EstimatedDeliveryDate = estimated.String
		r.Price = price.Float64
		r.FreightValue = freight.Float64
		r.SellerZipPrefix = int(sellerZip.Int64)
		r.CustomerZipPrefix = int(customerZip.Int64)
		if weight.Valid {
			w := weight.Float64
			r.ProductWeightG = &w
		}
		if review.Valid {
			s := int(review.Int64)
			r.ReviewScore = &s
		}

		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order rows: %w", err)
	}

	if len(list) == 0 {
		return nil, errors.New("no historical orders in warehouse, run ingest first")
	}
	return list, nil
}

// PipelineOrders converts warehouse records to pipeline inputs.
func PipelineOrders(records []OrderRecord) []pipeline.Order {
	orders := make([]pipeline.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].PipelineOrder())
	}
	return orders
}
