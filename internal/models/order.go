package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the journal record kept for every submitted draft.
type Order struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"session_id"`
	Branch         string          `json:"branch"`
	SlotStart      string          `json:"slot_start"`
	CustomerName   string          `json:"customer_name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	VehicleSize    SizeClass       `json:"vehicle_size"`
	Vehicle        string          `json:"vehicle"`
	Package        Package         `json:"package"`
	Addons         string          `json:"addons"`
	PriceBeforeTax decimal.Decimal `json:"price_before_tax"`
	PriceAfterTax  decimal.Decimal `json:"price_after_tax"`
	Paid           bool            `json:"paid"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
