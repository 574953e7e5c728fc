package sync

import (
	"strings"
	"time"

	"receiptsync/internal/dto"
	"receiptsync/internal/model"

	"github.com/shopspring/decimal"
)

// loyaltyMethod is the tender name the POS uses for loyalty-point redemption.
const loyaltyMethod = "POINTS"

// Transformer converts a receipt group plus its line items into the canonical
// delivery payload. Pure: no I/O, no clock, no randomness — the same inputs
// always produce the same payload.
type Transformer struct {
	// dateOffset is subtracted from source timestamps before emitting UTC.
	// The POS stores local wall-clock time with no zone information.
	dateOffset time.Duration
	currency   string
	storeID    string
}

func NewTransformer(offsetMinutes int, currency, storeID string) *Transformer {
	if currency == "" {
		currency = "INR"
	}
	return &Transformer{
		dateOffset: time.Duration(offsetMinutes) * time.Minute,
		currency:   currency,
		storeID:    storeID,
	}
}

// Transform builds the delivery payload for one receipt group.
func (t *Transformer) Transform(g model.ReceiptGroup, items []model.LineItem) *dto.DeliveryPayload {
	rep := g.Rep()

	payload := &dto.DeliveryPayload{
		ReceiptDetails: dto.ReceiptDetails{
			ReceiptNo:   g.ReceiptNo,
			Date:        rep.Date.Add(-t.dateOffset).UTC().Format(time.RFC3339),
			TypeOfOrder: "In-Store",
			InvoiceType: "Sales",
			StoreID:     t.storeID,
		},
		Items:        t.transformItems(items),
		Payment:      t.transformPayment(g, items),
		GstDetails:   aggregateGst(items),
		CustomerInfo: transformCustomer(rep),
		APIKey:       rep.APIKey,
	}
	return payload
}

func (t *Transformer) transformItems(items []model.LineItem) []dto.PayloadItem {
	out := make([]dto.PayloadItem, 0, len(items))
	for _, it := range items {
		out = append(out, dto.PayloadItem{
			SerialNo:           it.SerialNo,
			Name:               it.Name,
			Quantity:           it.Quantity,
			UnitPrice:          it.UnitPrice.Round(2),
			DiscountAmount:     it.DiscountAmount.Round(2),
			DiscountPercentage: it.DiscountPercentage.Round(2),
			BillDiscount:       it.BillDiscount.Round(2),
			NetAmount:          it.NetAmount.Round(2),
			Brand:              it.Brand,
			Category:           it.Category,
			TaxableAmount:      it.TaxableAmount.Round(2),
			GstAmount:          it.GstAmount.Round(2),
			GstPercent:         parsePercent(it.GstPercent),
		})
	}
	return out
}

func (t *Transformer) transformPayment(g model.ReceiptGroup, items []model.LineItem) dto.PaymentSummary {
	rep := g.Rep()

	preDiscount := decimal.Zero
	totalQty := decimal.Zero
	for _, it := range items {
		preDiscount = preDiscount.Add(it.UnitPrice)
		totalQty = totalQty.Add(it.Quantity)
	}

	totalTax := decimal.Zero
	for _, b := range aggregateGst(items) {
		totalTax = totalTax.Add(b.Gst)
	}

	p := dto.PaymentSummary{
		Currency:           t.currency,
		TotalQuantity:      totalQty,
		TotalTax:           totalTax.Round(2),
		TotalAmount:        rep.TotalAmount.Round(2),
		PreDiscountTotal:   preDiscount.Round(2),
		LoyaltyRedemptions: loyaltyRedemptions(g).Round(2),
	}

	if g.SplitPayment() {
		p.SplitPayments = make([]dto.SplitPayment, 0, len(g.Legs))
		for _, leg := range g.Legs {
			p.SplitPayments = append(p.SplitPayments, dto.SplitPayment{
				Method: leg.PayMethod,
				Amount: leg.PayAmount.Round(2),
			})
		}
	} else {
		p.Mode = rep.PayMethod
	}
	return p
}

// loyaltyRedemptions sums POINTS tenders regardless of how many legs the
// receipt has — surfaced independently of the split-payment list.
func loyaltyRedemptions(g model.ReceiptGroup) decimal.Decimal {
	total := decimal.Zero
	for _, leg := range g.Legs {
		if strings.EqualFold(leg.PayMethod, loyaltyMethod) {
			total = total.Add(leg.PayAmount)
		}
	}
	return total
}

// aggregateGst buckets items by tax percentage in first-seen order. Within a
// bucket the total GST splits 50/50 into CGST and SGST.
func aggregateGst(items []model.LineItem) []dto.GstBucket {
	index := make(map[string]int)
	buckets := make([]dto.GstBucket, 0, 2)

	for _, it := range items {
		pct := parsePercent(it.GstPercent)
		key := pct.String()
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, dto.GstBucket{Percentage: pct})
		}
		buckets[i].Gst = buckets[i].Gst.Add(it.GstAmount)
		buckets[i].TaxableAmount = buckets[i].TaxableAmount.Add(it.TaxableAmount)
	}

	for i := range buckets {
		buckets[i].Gst = buckets[i].Gst.Round(2)
		buckets[i].TaxableAmount = buckets[i].TaxableAmount.Round(2)
		// Odd cents land on SGST so that cgst + sgst always equals gst
		half := buckets[i].Gst.Div(decimal.NewFromInt(2)).RoundDown(2)
		buckets[i].Cgst = half
		buckets[i].Sgst = buckets[i].Gst.Sub(half)
	}
	return buckets
}

// parsePercent coerces the raw tax percentage to a decimal, defaulting to 0
// for missing or unparseable values.
func parsePercent(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func transformCustomer(rep model.RawReceiptLeg) dto.CustomerInfo {
	c := dto.CustomerInfo{
		Name:         rep.CustomerName,
		MobileNumber: rep.MobileNumber,
	}
	if rep.MobileNumber != "" {
		c.CountryCode = "91"
		c.WhatsappOptIn = true
	}
	return c
}
