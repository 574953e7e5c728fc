package source

import (
	"context"
	"time"

	"receiptsync/internal/model"
	"receiptsync/internal/syncerr"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// HDPOS adapts the HDPOS SQL Server schema (tbl_DYN_*) onto the canonical
// receipt shapes. Split tenders surface as one row per payment record,
// ordered by invoice date so the engine processes receipts chronologically.
type HDPOS struct {
	db *gorm.DB
}

func NewHDPOS(db *gorm.DB) *HDPOS { return &HDPOS{db: db} }

var _ ReceiptSource = (*HDPOS)(nil)

func (h *HDPOS) Vendor() string { return "HDPOS" }

func (h *HDPOS) Ping(ctx context.Context) error { return pingDB(ctx, h.db) }

type hdposLegRow struct {
	InvoiceID      string          `gorm:"column:InvoiceId"`
	BillNumber     string          `gorm:"column:BillNumber"`
	InvoiceDate    time.Time       `gorm:"column:InvoiceDate"`
	GrandTotal     decimal.Decimal `gorm:"column:GrandTotal"`
	PayMode        string          `gorm:"column:PayMode"`
	PayAmount      decimal.Decimal `gorm:"column:PayAmount"`
	CustomerName   string          `gorm:"column:CustomerName"`
	CustomerMobile string          `gorm:"column:CustomerMobile"`
	LocationAPIKey string          `gorm:"column:LocationAPIKey"`
}

func (r hdposLegRow) toLeg() model.RawReceiptLeg {
	return model.RawReceiptLeg{
		ReceiptNo:    r.BillNumber,
		Date:         r.InvoiceDate,
		TotalAmount:  r.GrandTotal,
		PayMethod:    r.PayMode,
		PayAmount:    r.PayAmount,
		CustomerName: r.CustomerName,
		MobileNumber: r.CustomerMobile,
		SourceRowID:  r.InvoiceID,
		APIKey:       r.LocationAPIKey,
	}
}

const hdposLegSelect = `
SELECT
  SalesInvoice.Id                           as InvoiceId,
  SalesInvoice.InvNumber                    as BillNumber,
  SalesInvoice.Date                         as InvoiceDate,
  IsNull(SalesInvoice.GrandTotal, 0)        as GrandTotal,
  IsNull(Payment.PaymentMode, SalesInvoice.SalesType) as PayMode,
  IsNull(Payment.Amount, SalesInvoice.GrandTotal)     as PayAmount,
  IsNull(Customer.Name, '')                 as CustomerName,
  IsNull(Contact.MobileNumber, '')          as CustomerMobile,
  IsNull(BusinessLocation.ESICNumber, '')   as LocationAPIKey
FROM tbl_DYN_SalesInvoices as SalesInvoice WITH (NOLOCK)
LEFT JOIN tbl_DYN_SalesInvoices_Payments as sipay WITH (NOLOCK)
  ON sipay.SalesInvoiceId = SalesInvoice.Id
LEFT JOIN tbl_DYN_Payments as Payment WITH (NOLOCK)
  ON Payment.Id = sipay.PaymentId
LEFT JOIN tbl_DYN_SalesInvoices_Customers as sicust WITH (NOLOCK)
  ON sicust.SalesInvoiceId = SalesInvoice.Id
LEFT JOIN tbl_DYN_Customers as Customer WITH (NOLOCK)
  ON Customer.Id = sicust.CustomerId
LEFT JOIN tbl_DYN_Customers_Addresses as CustomerAddress WITH (NOLOCK)
  ON CustomerAddress.CustomerId = Customer.Id
LEFT JOIN tbl_DYN_Addresses_Contacts as adcont WITH (NOLOCK)
  ON adcont.AddressId = CustomerAddress.AddressId
LEFT JOIN tbl_DYN_Contacts as Contact WITH (NOLOCK)
  ON Contact.Id = adcont.ContactId
LEFT JOIN tbl_DYN_SalesInvoices_BusinessLocations as sibl WITH (NOLOCK)
  ON sibl.SalesInvoiceId = SalesInvoice.Id
LEFT JOIN tbl_DYN_BusinessLocations as BusinessLocation WITH (NOLOCK)
  ON BusinessLocation.Id = sibl.BusinessLocationId`

func (h *HDPOS) FetchRecent(ctx context.Context, wm model.Watermark, limit int) ([]model.RawReceiptLeg, error) {
	since, ok, err := h.resolveBound(ctx, wm)
	if err != nil {
		return nil, syncerr.NewSourceError("fetch_recent", err)
	}
	if !ok {
		// No usable bound — fail closed rather than scan an unknown-size table
		return nil, nil
	}

	var rows []hdposLegRow
	q := hdposLegSelect + `
WHERE SalesInvoice.Date > @since
ORDER BY SalesInvoice.Date ASC
OFFSET 0 ROWS FETCH NEXT @limit ROWS ONLY`
	err = h.db.WithContext(ctx).
		Raw(q, map[string]interface{}{"since": since, "limit": limit}).
		Scan(&rows).Error
	if err != nil {
		return nil, syncerr.NewSourceError("fetch_recent", err)
	}
	return toLegs(rows), nil
}

// resolveBound turns the watermark into a concrete date bound. A watermark
// with only a receipt number (server-resolved) is bounded by a keyed lookup
// of that receipt's invoice date; an unknown receipt yields no bound.
func (h *HDPOS) resolveBound(ctx context.Context, wm model.Watermark) (time.Time, bool, error) {
	if !wm.Date.IsZero() {
		return wm.Date, true, nil
	}
	if wm.ReceiptNo == "" {
		return time.Time{}, false, nil
	}
	var dates []time.Time
	err := h.db.WithContext(ctx).
		Raw(`SELECT TOP 1 Date FROM tbl_DYN_SalesInvoices WITH (NOLOCK) WHERE InvNumber = @no`,
			map[string]interface{}{"no": wm.ReceiptNo}).
		Scan(&dates).Error
	if err != nil {
		return time.Time{}, false, err
	}
	if len(dates) == 0 {
		return time.Time{}, false, nil
	}
	return dates[0], true, nil
}

func (h *HDPOS) FetchSingle(ctx context.Context, receiptNo string) ([]model.RawReceiptLeg, error) {
	var rows []hdposLegRow
	q := hdposLegSelect + `
WHERE SalesInvoice.InvNumber = @no`
	err := h.db.WithContext(ctx).
		Raw(q, map[string]interface{}{"no": receiptNo}).
		Scan(&rows).Error
	if err != nil {
		return nil, syncerr.NewSourceError("fetch_single", err)
	}
	return toLegs(rows), nil
}

type hdposItemRow struct {
	SerialNumber       int             `gorm:"column:SerialNumber"`
	ItemName           string          `gorm:"column:ItemName"`
	Quantity           decimal.Decimal `gorm:"column:Quantity"`
	MRP                decimal.Decimal `gorm:"column:MRP"`
	DiscountedAmount   decimal.Decimal `gorm:"column:DiscountedAmount"`
	DiscountPercentage decimal.Decimal `gorm:"column:DiscountPercentage"`
	BillDiscount       decimal.Decimal `gorm:"column:BillDiscount"`
	ItemTotalAmount    decimal.Decimal `gorm:"column:ItemTotalAmount"`
	Brand              string          `gorm:"column:Brand"`
	Category           string          `gorm:"column:Category"`
	TaxableAmount      decimal.Decimal `gorm:"column:TaxableAmount"`
	GstAmount          decimal.Decimal `gorm:"column:GstAmount"`
	TaxPercentage      string          `gorm:"column:TaxPercentage"`
}

func (h *HDPOS) FetchItems(ctx context.Context, sourceRowID string) ([]model.LineItem, error) {
	var rows []hdposItemRow
	err := h.db.WithContext(ctx).Raw(`
SELECT
  ROW_NUMBER() OVER(ORDER BY (SELECT NULL))             as SerialNumber,
  InvoiceItem.Name                                      as ItemName,
  InvoiceItem.Quantity                                  as Quantity,
  IsNull(InvoiceItem.MRP, 0)                            as MRP,
  IsNull(ROUND(InvoiceItem.DiscountedAmount, 2), 0)     as DiscountedAmount,
  IsNull(ROUND(InvoiceItem.DiscountPercent, 2), 0)      as DiscountPercentage,
  IsNull(ROUND(InvoiceItem.BillDiscountAmount, 2), 0)   as BillDiscount,
  IsNull(ROUND(InvoiceItem.TotalAmount, 2), 0)          as ItemTotalAmount,
  IsNull(Item.Brand, '')                                as Brand,
  IsNull(Item.Category, '')                             as Category,
  IsNull(ROUND(InvoiceItem.TaxableAmount, 2), 0)        as TaxableAmount,
  IsNull(ROUND(InvoiceItem.TaxAmount, 2), 0)            as GstAmount,
  CONVERT(varchar(16), IsNull(ROUND(InvoiceItem.AdvanceTax1Percent+InvoiceItem.AdvanceTax2Percent+InvoiceItem.AdvanceTax3Percent+InvoiceItem.AdvanceTax4Percent+InvoiceItem.AdvanceTax5Percent+InvoiceItem.TaxPercent, 1), 0)) as TaxPercentage
FROM tbl_DYN_SalesInvoices as SalesInvoice WITH (NOLOCK)
JOIN tbl_DYN_SalesInvoices_InvoiceItems as siit WITH (NOLOCK)
  ON siit.SalesInvoiceId = SalesInvoice.Id
JOIN tbl_DYN_InvoiceItems as InvoiceItem WITH (NOLOCK)
  ON siit.InvoiceItemId = InvoiceItem.Id
LEFT JOIN tbl_DYN_InvoiceItems_Items as iii WITH (NOLOCK)
  ON iii.InvoiceItemId = InvoiceItem.Id
LEFT JOIN tbl_DYN_Items as Item WITH (NOLOCK)
  ON Item.Id = iii.ItemId
WHERE SalesInvoice.Id = @id`,
		map[string]interface{}{"id": sourceRowID}).
		Scan(&rows).Error
	if err != nil {
		return nil, syncerr.NewSourceError("fetch_items", err)
	}

	items := make([]model.LineItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, model.LineItem{
			SerialNo:           r.SerialNumber,
			Name:               r.ItemName,
			Quantity:           r.Quantity,
			UnitPrice:          r.MRP,
			DiscountAmount:     r.DiscountedAmount,
			DiscountPercentage: r.DiscountPercentage,
			BillDiscount:       r.BillDiscount,
			NetAmount:          r.ItemTotalAmount,
			Brand:              r.Brand,
			Category:           r.Category,
			TaxableAmount:      r.TaxableAmount,
			GstAmount:          r.GstAmount,
			GstPercent:         r.TaxPercentage,
		})
	}
	return items, nil
}

func toLegs(rows []hdposLegRow) []model.RawReceiptLeg {
	legs := make([]model.RawReceiptLeg, 0, len(rows))
	for _, r := range rows {
		legs = append(legs, r.toLeg())
	}
	return legs
}
