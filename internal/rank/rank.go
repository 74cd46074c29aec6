// Package rank selects the rows whose delivery percentage clears a threshold.
package rank

import (
	"sort"

	"github.com/shanehull/dlvscan/internal/types"
)

// Select keeps rows with DeliveryPct >= threshold, orders them by delivery
// percentage descending and truncates to maxCount. Rows with equal delivery keep
// their input order. maxCount <= 0 means no cap. The input slice is not modified.
func Select(rows []types.NormalizedRow, threshold float64, maxCount int) types.RankedSelection {
	sel := make(types.RankedSelection, 0, len(rows))
	for _, r := range rows {
		if r.DeliveryPct >= threshold {
			sel = append(sel, r)
		}
	}

	sort.SliceStable(sel, func(i, j int) bool {
		return sel[i].DeliveryPct > sel[j].DeliveryPct
	})

	if maxCount > 0 && len(sel) > maxCount {
		sel = sel[:maxCount]
	}
	return sel
}
