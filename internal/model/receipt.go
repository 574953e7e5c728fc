package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawReceiptLeg is one row returned by a ReceiptSource adapter. A receipt paid
// with a single tender produces one leg; split tenders (e.g. cash + loyalty
// points) produce one leg per payment method, all sharing the same ReceiptNo.
// Adapters are responsible for mapping their native columns onto this shape.
type RawReceiptLeg struct {
	ReceiptNo    string
	Date         time.Time
	TotalAmount  decimal.Decimal
	PayMethod    string
	PayAmount    decimal.Decimal
	CustomerName string
	MobileNumber string
	// SourceRowID is the vendor's internal invoice identifier, used to key
	// the item-detail fetch. Opaque to everything but the adapter.
	SourceRowID string
	// APIKey is a per-location ledger key some vendors store alongside the
	// invoice. Empty means the configured key applies.
	APIKey string
}

// ReceiptGroup is every leg sharing one receipt number, in arrival order.
// All legs carry the same Date (same transaction).
type ReceiptGroup struct {
	ReceiptNo string
	Legs      []RawReceiptLeg
}

// Rep returns the representative leg (legs[0]) used for validation.
func (g *ReceiptGroup) Rep() RawReceiptLeg {
	return g.Legs[0]
}

// SplitPayment reports whether the receipt was paid via multiple tenders.
func (g *ReceiptGroup) SplitPayment() bool {
	return len(g.Legs) > 1
}

// SourceRowID returns the vendor row identifier for the item-detail fetch.
func (g *ReceiptGroup) SourceRowID() string {
	return g.Legs[0].SourceRowID
}

// LineItem is one invoice line from the vendor's item-detail query.
type LineItem struct {
	SerialNo           int
	Name               string
	Quantity           decimal.Decimal
	UnitPrice          decimal.Decimal
	DiscountAmount     decimal.Decimal
	DiscountPercentage decimal.Decimal
	BillDiscount       decimal.Decimal
	NetAmount          decimal.Decimal
	Brand              string
	Category           string
	TaxableAmount      decimal.Decimal
	GstAmount          decimal.Decimal
	// GstPercent comes through as raw text on some vendor schemas; the
	// transformer coerces unparseable values to 0.
	GstPercent string
}
