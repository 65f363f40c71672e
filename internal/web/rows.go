package web

import (
	"github.com/adrianncovaci/uni-chain/internal/chain"
	"github.com/adrianncovaci/uni-chain/internal/types"
)

// courseRow is the per-row view model for the course grid. Action flags are
// derived from the snapshot and the viewer's account; the node re-checks
// everything on submission, so these gate presentation only.
type courseRow struct {
	Dna          string
	Owner        string
	Year         types.CourseYear
	Credits      uint8
	PriceDisplay string
	ForSale      bool
	Mine         bool
	CanSetPrice  bool
	CanTransfer  bool
	CanBuy       bool
	CanBreed     bool
}

// buildRows maps snapshot records to grid rows for the given viewer. Breeding
// needs two owned courses, so the flag is computed against the whole set.
func buildRows(records []types.CourseRecord, account string) []courseRow {
	owned := 0
	for _, rec := range records {
		if rec.OwnedBy(account) {
			owned++
		}
	}

	rows := make([]courseRow, 0, len(records))
	for _, rec := range records {
		mine := rec.OwnedBy(account)
		row := courseRow{
			Dna:         rec.Dna,
			Owner:       rec.Owner,
			Year:        rec.Year,
			Credits:     rec.Credits,
			ForSale:     rec.ForSale(),
			Mine:        mine,
			CanSetPrice: mine,
			CanTransfer: mine,
			CanBuy:      !mine && rec.ForSale(),
			CanBreed:    mine && owned >= 2,
		}
		if rec.ForSale() {
			row.PriceDisplay = chain.FormatBalance(rec.Price)
		}
		rows = append(rows, row)
	}
	return rows
}
