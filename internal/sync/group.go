package sync

import (
	"receiptsync/internal/model"

	"github.com/rs/zerolog/log"
)

// Group folds raw legs into receipt groups, preserving first-seen order.
// The grouping key is the receipt number exactly as the source returned it —
// no trimming or case normalization.
func Group(legs []model.RawReceiptLeg) []model.ReceiptGroup {
	index := make(map[string]int, len(legs))
	groups := make([]model.ReceiptGroup, 0, len(legs))

	for _, leg := range legs {
		if i, ok := index[leg.ReceiptNo]; ok {
			if !leg.Date.Equal(groups[i].Legs[0].Date) {
				// Same receipt number, different transaction timestamps —
				// the source data is inconsistent. Keep the first leg's date
				// authoritative and say so.
				log.Warn().
					Str("receipt_no", leg.ReceiptNo).
					Time("first_date", groups[i].Legs[0].Date).
					Time("leg_date", leg.Date).
					Msg("receipt legs disagree on transaction date")
			}
			groups[i].Legs = append(groups[i].Legs, leg)
			continue
		}
		index[leg.ReceiptNo] = len(groups)
		groups = append(groups, model.ReceiptGroup{
			ReceiptNo: leg.ReceiptNo,
			Legs:      []model.RawReceiptLeg{leg},
		})
	}
	return groups
}
