package sync

import (
	"testing"
	"time"

	"receiptsync/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leg(receiptNo, method string, amount float64, date time.Time) model.RawReceiptLeg {
	return model.RawReceiptLeg{
		ReceiptNo:   receiptNo,
		Date:        date,
		TotalAmount: decimal.NewFromFloat(amount),
		PayMethod:   method,
		PayAmount:   decimal.NewFromFloat(amount),
		SourceRowID: "row-" + receiptNo,
	}
}

func TestGroup_PreservesFirstSeenOrder(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	legs := []model.RawReceiptLeg{
		leg("ANN/S/1", "CASH", 100, at),
		leg("ANN/S/2", "CARD", 200, at),
		leg("ANN/S/1", "POINTS", 50, at), // second tender of receipt 1
		leg("ANN/S/3", "UPI", 300, at),
	}

	groups := Group(legs)
	require.Len(t, groups, 3)
	assert.Equal(t, "ANN/S/1", groups[0].ReceiptNo)
	assert.Equal(t, "ANN/S/2", groups[1].ReceiptNo)
	assert.Equal(t, "ANN/S/3", groups[2].ReceiptNo)

	assert.Len(t, groups[0].Legs, 2)
	assert.True(t, groups[0].SplitPayment())
	assert.False(t, groups[1].SplitPayment())
}

func TestGroup_KeyIsExactReceiptNo(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	legs := []model.RawReceiptLeg{
		leg("ANN/S/1", "CASH", 100, at),
		leg("ann/s/1", "CARD", 100, at), // different casing is a different receipt
	}

	groups := Group(legs)
	assert.Len(t, groups, 2)
}

func TestGroup_RepIsFirstLeg(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	first := leg("ANN/S/1", "CASH", 100, at)
	first.CustomerName = "Asha"
	legs := []model.RawReceiptLeg{first, leg("ANN/S/1", "POINTS", 20, at)}

	groups := Group(legs)
	require.Len(t, groups, 1)
	assert.Equal(t, "Asha", groups[0].Rep().CustomerName)
	assert.Equal(t, "row-ANN/S/1", groups[0].SourceRowID())
}

func TestGroup_Empty(t *testing.T) {
	assert.Empty(t, Group(nil))
}
