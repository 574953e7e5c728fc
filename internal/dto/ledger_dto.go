package dto

// RecentReceiptResponse is returned by the ledger's GET /recent endpoint.
// ReceiptNo is empty when the ledger has never ingested a receipt for this key.
type RecentReceiptResponse struct {
	ReceiptNo string `json:"receiptNo"`
}

// ExistsResponse is returned by GET /check?receiptNo=.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// CreateReceiptResponse is returned by POST /create. A Message equal to the
// known already-exists sentinel is a success-equivalent outcome, not an error.
type CreateReceiptResponse struct {
	Created  bool   `json:"created"`
	RecordID string `json:"recordId,omitempty"`
	Message  string `json:"message,omitempty"`
}
