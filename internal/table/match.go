package table

import (
	"strings"
	"unicode"

	"github.com/shanehull/dlvscan/internal/types"
)

// priceTokens are in preference order.
var priceTokens = []string{"last price", "ltp", "price", "close"}

var (
	quantityWords   = map[string]bool{"qty": true, "quantity": true, "volume": true, "vol": true, "shares": true}
	percentWords    = map[string]bool{"pct": true, "percent": true, "percentage": true, "per": true}
	looseNameTokens = []string{"company", "name", "stock", "symbol", "scrip"}
)

type column struct {
	raw   string
	norm  string
	words map[string]bool
}

func newColumn(name string) column {
	norm := normalizeName(name)
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(norm, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = true
	}
	return column{raw: name, norm: norm, words: words}
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func (c column) hasAnyWord(set map[string]bool) bool {
	for w := range c.words {
		if set[w] {
			return true
		}
	}
	return false
}

func (c column) percentMarked() bool {
	return strings.Contains(c.norm, "%") || c.hasAnyWord(percentWords)
}

func (c column) isCompany() bool {
	return strings.Contains(c.norm, "company") && strings.Contains(c.norm, "name")
}

// deliveryScore is 0 when the column cannot be the delivery percentage,
// 2 for a percent-marked delivery column and 1 otherwise.
func (c column) deliveryScore() int {
	if !strings.Contains(c.norm, "dely") && !strings.Contains(c.norm, "deliv") && !c.words["del"] {
		return 0
	}
	pct := c.percentMarked()
	if c.hasAnyWord(quantityWords) && !pct {
		return 0
	}
	if pct {
		return 2
	}
	return 1
}

// priceRank orders price candidates; lower is better and -1 means no match.
func (c column) priceRank() int {
	for tier, tok := range priceTokens {
		if !strings.Contains(c.norm, tok) {
			continue
		}
		rank := tier * 2
		if strings.Contains(c.norm, "chg") || strings.Contains(c.norm, "change") || strings.Contains(c.norm, "%") {
			rank++
		}
		return rank
	}
	return -1
}

// MatchColumns resolves canonical fields against column names using token matching only.
// Company requires both a "company" and a "name" token; fields left unresolved are empty.
func MatchColumns(names []string) types.SchemaMatch {
	cols := make([]column, len(names))
	for i, n := range names {
		cols[i] = newColumn(n)
	}

	var m types.SchemaMatch

	best := 0
	for _, c := range cols {
		if s := c.deliveryScore(); s > best {
			best = s
			m.DeliveryPct = c.raw
		}
	}

	for _, c := range cols {
		if c.raw != m.DeliveryPct && c.isCompany() {
			m.Company = c.raw
			break
		}
	}

	m.Price = bestPrice(cols, m.DeliveryPct, m.Company)
	return m
}

func bestPrice(cols []column, exclude ...string) string {
	bestRank := -1
	name := ""
	for _, c := range cols {
		if contains(exclude, c.raw) {
			continue
		}
		r := c.priceRank()
		if r < 0 {
			continue
		}
		if bestRank < 0 || r < bestRank {
			bestRank = r
			name = c.raw
		}
	}
	return name
}

// fallbackCompany picks a loosely named identifier column, else the first unused column.
func fallbackCompany(names []string, exclude ...string) string {
	for _, tok := range looseNameTokens {
		for _, n := range names {
			if !contains(exclude, n) && strings.Contains(normalizeName(n), tok) {
				return n
			}
		}
	}
	for _, n := range names {
		if !contains(exclude, n) {
			return n
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v != "" && v == s {
			return true
		}
	}
	return false
}
