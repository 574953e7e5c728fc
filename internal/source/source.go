// Package source defines the vendor-facing ReceiptSource capability and one
// concrete adapter per supported POS backend. Each adapter owns its SQL text
// and maps its native columns onto the canonical RawReceiptLeg / LineItem
// shapes; the engine never sees vendor-specific rows.
package source

import (
	"context"
	"fmt"
	"strings"

	"receiptsync/internal/model"

	"gorm.io/gorm"
)

// ReceiptSource is implemented once per POS vendor and selected at startup.
type ReceiptSource interface {
	// FetchRecent returns receipt legs strictly newer than the watermark,
	// capped at limit rows. When the watermark carries no usable bound the
	// adapter MUST return an empty slice rather than scan the whole table.
	FetchRecent(ctx context.Context, wm model.Watermark, limit int) ([]model.RawReceiptLeg, error)
	// FetchItems returns the line items for a receipt, keyed by the vendor
	// row identifier captured on the legs.
	FetchItems(ctx context.Context, sourceRowID string) ([]model.LineItem, error)
	// FetchSingle returns the legs of exactly one receipt, for manual sync.
	FetchSingle(ctx context.Context, receiptNo string) ([]model.RawReceiptLeg, error)
	// Ping reports source database connectivity (health endpoint).
	Ping(ctx context.Context) error
	// Vendor names the adapter for logs.
	Vendor() string
}

// ForVendor selects the adapter for the configured POS type.
func ForVendor(posType string, db *gorm.DB) (ReceiptSource, error) {
	switch strings.ToUpper(posType) {
	case "HDPOS":
		return NewHDPOS(db), nil
	case "QUICKBILL":
		return NewQuickBill(db), nil
	default:
		return nil, fmt.Errorf("unsupported POS type %q", posType)
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
