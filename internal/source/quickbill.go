package source

import (
	"context"
	"time"

	"receiptsync/internal/model"
	"receiptsync/internal/syncerr"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QuickBill adapts the QuickBill schema, which is flatter than HDPOS: one
// invoice table, one payment table and one item table, no link tables.
type QuickBill struct {
	db *gorm.DB
}

func NewQuickBill(db *gorm.DB) *QuickBill { return &QuickBill{db: db} }

var _ ReceiptSource = (*QuickBill)(nil)

func (q *QuickBill) Vendor() string { return "QUICKBILL" }

func (q *QuickBill) Ping(ctx context.Context) error { return pingDB(ctx, q.db) }

type quickbillLegRow struct {
	InvoiceID      string          `gorm:"column:InvoiceId"`
	BillNumber     string          `gorm:"column:BillNumber"`
	InvoiceDate    time.Time       `gorm:"column:InvoiceDate"`
	GrandTotal     decimal.Decimal `gorm:"column:GrandTotal"`
	PayMode        string          `gorm:"column:PayMode"`
	PayAmount      decimal.Decimal `gorm:"column:PayAmount"`
	CustomerName   string          `gorm:"column:CustomerName"`
	CustomerMobile string          `gorm:"column:CustomerMobile"`
}

const quickbillLegSelect = `
SELECT
  Inv.InvoiceId                          as InvoiceId,
  Inv.BillNumber                         as BillNumber,
  Inv.InvoiceDate                        as InvoiceDate,
  IsNull(Inv.GrandTotal, 0)              as GrandTotal,
  IsNull(Pay.PaymentMode, 'CASH')        as PayMode,
  IsNull(Pay.Amount, Inv.GrandTotal)     as PayAmount,
  IsNull(Inv.CustomerName, '')           as CustomerName,
  IsNull(Inv.CustomerMobile, '')         as CustomerMobile
FROM tbl_QB_Invoices as Inv WITH (NOLOCK)
LEFT JOIN tbl_QB_InvoicePayments as Pay WITH (NOLOCK)
  ON Pay.InvoiceId = Inv.InvoiceId`

func (q *QuickBill) FetchRecent(ctx context.Context, wm model.Watermark, limit int) ([]model.RawReceiptLeg, error) {
	// QuickBill receipts carry no server-resolvable date lookup cheap enough
	// to bound by receipt number alone; without a date the fetch fails closed.
	if wm.Date.IsZero() {
		return nil, nil
	}

	var rows []quickbillLegRow
	err := q.db.WithContext(ctx).
		Raw(quickbillLegSelect+`
WHERE Inv.InvoiceDate > @since
ORDER BY Inv.InvoiceDate ASC
OFFSET 0 ROWS FETCH NEXT @limit ROWS ONLY`,
			map[string]interface{}{"since": wm.Date, "limit": limit}).
		Scan(&rows).Error
	if err != nil {
		return nil, syncerr.NewSourceError("fetch_recent", err)
	}
	return q.toLegs(rows), nil
}

func (q *QuickBill) FetchSingle(ctx context.Context, receiptNo string) ([]model.RawReceiptLeg, error) {
	var rows []quickbillLegRow
	err := q.db.WithContext(ctx).
		Raw(quickbillLegSelect+`
WHERE Inv.BillNumber = @no`, map[string]interface{}{"no": receiptNo}).
		Scan(&rows).Error
	if err != nil {
		return nil, syncerr.NewSourceError("fetch_single", err)
	}
	return q.toLegs(rows), nil
}

type quickbillItemRow struct {
	SerialNumber  int             `gorm:"column:SerialNumber"`
	ItemName      string          `gorm:"column:ItemName"`
	Quantity      decimal.Decimal `gorm:"column:Quantity"`
	UnitPrice     decimal.Decimal `gorm:"column:UnitPrice"`
	Discount      decimal.Decimal `gorm:"column:Discount"`
	TotalAmount   decimal.Decimal `gorm:"column:TotalAmount"`
	TaxableAmount decimal.Decimal `gorm:"column:TaxableAmount"`
	TaxAmount     decimal.Decimal `gorm:"column:TaxAmount"`
	TaxPercent    string          `gorm:"column:TaxPercent"`
}

func (q *QuickBill) FetchItems(ctx context.Context, sourceRowID string) ([]model.LineItem, error) {
	var rows []quickbillItemRow
	err := q.db.WithContext(ctx).Raw(`
SELECT
  ROW_NUMBER() OVER(ORDER BY (SELECT NULL))   as SerialNumber,
  Item.ItemName                               as ItemName,
  Item.Quantity                               as Quantity,
  IsNull(Item.UnitPrice, 0)                   as UnitPrice,
  IsNull(ROUND(Item.Discount, 2), 0)          as Discount,
  IsNull(ROUND(Item.TotalAmount, 2), 0)       as TotalAmount,
  IsNull(ROUND(Item.TaxableAmount, 2), 0)     as TaxableAmount,
  IsNull(ROUND(Item.TaxAmount, 2), 0)         as TaxAmount,
  CONVERT(varchar(16), IsNull(Item.TaxPercent, 0)) as TaxPercent
FROM tbl_QB_InvoiceItems as Item WITH (NOLOCK)
WHERE Item.InvoiceId = @id`,
		map[string]interface{}{"id": sourceRowID}).
		Scan(&rows).Error
	if err != nil {
		return nil, syncerr.NewSourceError("fetch_items", err)
	}

	items := make([]model.LineItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, model.LineItem{
			SerialNo:       r.SerialNumber,
			Name:           r.ItemName,
			Quantity:       r.Quantity,
			UnitPrice:      r.UnitPrice,
			DiscountAmount: r.Discount,
			NetAmount:      r.TotalAmount,
			TaxableAmount:  r.TaxableAmount,
			GstAmount:      r.TaxAmount,
			GstPercent:     r.TaxPercent,
		})
	}
	return items, nil
}

func (q *QuickBill) toLegs(rows []quickbillLegRow) []model.RawReceiptLeg {
	legs := make([]model.RawReceiptLeg, 0, len(rows))
	for _, r := range rows {
		legs = append(legs, model.RawReceiptLeg{
			ReceiptNo:    r.BillNumber,
			Date:         r.InvoiceDate,
			TotalAmount:  r.GrandTotal,
			PayMethod:    r.PayMode,
			PayAmount:    r.PayAmount,
			CustomerName: r.CustomerName,
			MobileNumber: r.CustomerMobile,
			SourceRowID:  r.InvoiceID,
		})
	}
	return legs
}
