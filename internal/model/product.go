package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a stocked inventory item. ID and CreatedAt are assigned by the
// store on creation; UpdatedAt stays nil until the first update.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	Category    string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// ProductFields are the caller-controlled fields of a product, used both as
// a creation draft and as the full replacement set on update.
type ProductFields struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	Category    string
}

// Fields returns the mutable part of p.
func (p Product) Fields() ProductFields {
	return ProductFields{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
		Category:    p.Category,
	}
}
