package models

import "time"

type Order struct {
	ID         string
	OrderNo    string
	CustomerID *int64
	Total      string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type OrderItem struct {
	OrderID   string
	SKU       string
	Quantity  int
	UnitPrice string
}
