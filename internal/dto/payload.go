package dto

import "github.com/shopspring/decimal"

// DeliveryPayload is the canonical envelope POSTed to the ledger's create
// endpoint. Built exclusively by the transformer; every numeric field is a
// concrete decimal (missing source values become 0, never null).
type DeliveryPayload struct {
	ReceiptDetails ReceiptDetails `json:"receiptDetails"`
	Items          []PayloadItem  `json:"items"`
	Payment        PaymentSummary `json:"payment"`
	GstDetails     []GstBucket    `json:"gstDetails"`
	CustomerInfo   CustomerInfo   `json:"customerInfo"`
	APIKey         string         `json:"apiKey"`
}

// ReceiptDetails is the receipt header block.
type ReceiptDetails struct {
	ReceiptNo   string `json:"receiptNo"`
	Date        string `json:"date"` // RFC3339 UTC, offset-corrected
	TypeOfOrder string `json:"typeOfOrder"`
	InvoiceType string `json:"invoiceType"`
	StoreID     string `json:"storeId,omitempty"`
}

// PayloadItem is one line item in delivery shape.
type PayloadItem struct {
	SerialNo           int             `json:"serialNo"`
	Name               string          `json:"name"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unitPrice"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	BillDiscount       decimal.Decimal `json:"billDiscount"`
	NetAmount          decimal.Decimal `json:"netAmount"`
	Brand              string          `json:"brand,omitempty"`
	Category           string          `json:"category,omitempty"`
	TaxableAmount      decimal.Decimal `json:"taxableAmount"`
	GstAmount          decimal.Decimal `json:"gstAmount"`
	GstPercent         decimal.Decimal `json:"gst"`
}

// SplitPayment is one tender of a multi-tender receipt.
type SplitPayment struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentSummary aggregates payment information for the receipt.
// Exactly one of Mode / SplitPayments is populated: Mode for single-tender
// receipts, SplitPayments for multi-tender ones.
type PaymentSummary struct {
	Currency         string          `json:"currency"`
	TotalQuantity    decimal.Decimal `json:"totalQuantity"`
	TotalTax         decimal.Decimal `json:"totalTax"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	PreDiscountTotal decimal.Decimal `json:"preDiscountTotal"`
	Mode             string          `json:"mode,omitempty"`
	SplitPayments    []SplitPayment  `json:"splitPayments,omitempty"`
	// LoyaltyRedemptions surfaces the amount of any POINTS tender,
	// independent of the split-payment list.
	LoyaltyRedemptions decimal.Decimal `json:"loyaltyRedemptions"`
}

// GstBucket aggregates tax for one tax percentage across the receipt's items.
// Gst is split 50/50 into Cgst and Sgst.
type GstBucket struct {
	Percentage    decimal.Decimal `json:"percentage"`
	Cgst          decimal.Decimal `json:"cgst"`
	Sgst          decimal.Decimal `json:"sgst"`
	Gst           decimal.Decimal `json:"gst"`
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
}

// CustomerInfo carries the purchaser details, when the POS recorded any.
type CustomerInfo struct {
	Name          string `json:"name,omitempty"`
	CountryCode   string `json:"countryCode,omitempty"`
	MobileNumber  string `json:"mobileNumber,omitempty"`
	WhatsappOptIn bool   `json:"whatsappOptIn"`
}
