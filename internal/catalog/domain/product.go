package domain

import (
	"time"
)

type Product struct {
	ID        int64     `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	UnitPrice float64   `json:"unit_price"` // two-decimal precision, stored as NUMERIC(10,2)
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductWithStock is the listing shape: catalog attributes joined with the
// stock derived from the movement ledger at read time.
type ProductWithStock struct {
	ID           int64     `json:"id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	UnitPrice    float64   `json:"unit_price"`
	CurrentStock int       `json:"current_stock"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateProductRequest struct {
	SKU       string  `json:"sku" binding:"required,min=3,max=50"`
	Name      string  `json:"name" binding:"required,min=2,max=100"`
	UnitPrice float64 `json:"unit_price" binding:"required,gt=0"`
}

type UpdateProductRequest struct {
	SKU       string  `json:"sku" binding:"required,min=3,max=50"`
	Name      string  `json:"name" binding:"required,min=2,max=100"`
	UnitPrice float64 `json:"unit_price" binding:"required,gt=0"`
}
