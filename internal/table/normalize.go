package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shanehull/dlvscan/internal/types"
)

// NormalizationError means the chosen table held nothing usable at all.
type NormalizationError struct {
	Reason string
}

func (e *NormalizationError) Error() string {
	return "normalization failed: " + e.Reason
}

var priceReplacer = strings.NewReplacer(",", "", "₹", "", "$", "", "€", "", "£", "", " ", "", "\u00a0", "")

var currencyPrefixes = []string{"rs.", "rs", "inr"}

// Normalize converts the resolved columns into typed rows in table order. Cells that do
// not parse and delivery values outside [0,100] drop their row; they are never clamped.
func Normalize(res *types.Resolution) ([]types.NormalizedRow, types.NormalizeStats, error) {
	var stats types.NormalizeStats

	if res == nil {
		return nil, stats, &NormalizationError{Reason: "no resolved table"}
	}

	t := res.Table
	n := t.RowCount()
	if t.Width() == 0 || n == 0 {
		return nil, stats, &NormalizationError{Reason: "table has no rows"}
	}

	delivery := t.Column(res.Match.DeliveryPct)
	if delivery == nil {
		return nil, stats, &NormalizationError{Reason: fmt.Sprintf("delivery column %q not in table", res.Match.DeliveryPct)}
	}

	var company, price []string
	if res.Match.Company != "" {
		company = t.Column(res.Match.Company)
	}
	if res.Match.Price != "" {
		price = t.Column(res.Match.Price)
	}

	rows := make([]types.NormalizedRow, 0, n)
	parsed := 0

	for i := 0; i < n; i++ {
		stats.Total++

		d, ok := ParsePercent(delivery[i])
		if !ok {
			stats.DroppedParse++
			continue
		}

		row := types.NormalizedRow{DeliveryPct: d}
		if price != nil {
			p, ok := ParsePrice(price[i])
			if !ok {
				stats.DroppedParse++
				continue
			}
			row.Price = p
			row.HasPrice = true
		}
		parsed++

		if d < 0 || d > 100 || row.Price < 0 {
			stats.DroppedRange++
			continue
		}

		if company != nil {
			row.Company = collapseSpace(company[i])
		}
		rows = append(rows, row)
	}

	stats.Kept = len(rows)
	if parsed == 0 {
		return nil, stats, &NormalizationError{Reason: fmt.Sprintf("none of %d rows could be parsed", n)}
	}
	return rows, stats, nil
}

// ParsePercent parses cells such as "92.5", "92.5%" and " 92.5 % ".
func ParsePercent(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	return parseFinite(strings.TrimSpace(s))
}

// ParsePrice parses cells such as "1,234.50", "₹ 1,234.50" and "Rs. 980".
func ParsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(priceReplacer.Replace(s))
	lower := strings.ToLower(s)
	for _, p := range currencyPrefixes {
		if strings.HasPrefix(lower, p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}
	return parseFinite(s)
}

// parseFinite accepts plain decimal notation only, so Go literal forms such
// as "0x1p6" or "1_000" are not numbers here.
func parseFinite(s string) (float64, bool) {
	if s == "" || strings.IndexFunc(s, notDecimal) >= 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func notDecimal(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return false
	case r == '.', r == '+', r == '-', r == 'e', r == 'E':
		return false
	}
	return true
}
