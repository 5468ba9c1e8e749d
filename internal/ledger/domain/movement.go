package domain

import (
	"time"
)

type MovementKind string

const (
	KindInbound  MovementKind = "INBOUND"
	KindOutbound MovementKind = "OUTBOUND"
)

// Movement is a single committed stock-movement row, enriched with product
// details and the product's current stock at the time it was read.
type Movement struct {
	ID           int64        `json:"id"`
	ProductID    int64        `json:"product_id"`
	Kind         MovementKind `json:"kind"`
	Quantity     int          `json:"quantity"`
	Note         *string      `json:"note,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	ProductName  string       `json:"product_name"`
	SKU          string       `json:"sku"`
	CurrentStock int          `json:"current_stock"`
}

// ProductRef is the slice of product state the ledger needs when appending:
// identity for enrichment and unit price for valuation.
type ProductRef struct {
	ID        int64
	SKU       string
	Name      string
	UnitPrice float64
}

type AppendMovementRequest struct {
	ProductID int64        `json:"product_id" binding:"required,gt=0"`
	Kind      MovementKind `json:"kind" binding:"required,oneof=INBOUND OUTBOUND"`
	Quantity  int          `json:"quantity" binding:"required,gt=0"`
	Note      *string      `json:"note,omitempty" binding:"omitempty,max=500"`
}

type StockInfo struct {
	ProductID    int64 `json:"product_id"`
	CurrentStock int   `json:"current_stock"`
}

type ValuationInfo struct {
	ProductID    int64   `json:"product_id"`
	CurrentStock int     `json:"current_stock"`
	UnitPrice    float64 `json:"unit_price"`
	Valuation    float64 `json:"valuation"`
}
