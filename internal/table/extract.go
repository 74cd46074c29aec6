/*
Package table finds the delivery statistics table inside a fetched page, works out which
columns hold the company, price and delivery percentage, and turns the cells into typed rows.
*/
package table

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/shanehull/dlvscan/internal/types"
)

const maxColspan = 32

var whitespaceRe = regexp.MustCompile(`[\n\t\r\s\xA0]+`)

// Extract returns every table in body that has at least one named column and one data row.
func Extract(body []byte) ([]types.CandidateTable, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var tables []types.CandidateTable
	doc.Find("table").Each(func(i int, s *goquery.Selection) {
		t, ok := extractTable(s)
		if !ok {
			return
		}
		t.Index = i
		tables = append(tables, t)
	})
	return tables, nil
}

func extractTable(s *goquery.Selection) (types.CandidateTable, bool) {
	// Rows of nested tables belong to those tables, not this one.
	rows := s.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").IsSelection(s)
	})
	if rows.Length() == 0 {
		return types.CandidateTable{}, false
	}

	headerIdx := 0
	rows.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if tr.ChildrenFiltered("th").Length() > 0 {
			headerIdx = i
			return false
		}
		return true
	})

	var header []string
	var data [][]string
	rows.Each(func(i int, tr *goquery.Selection) {
		switch {
		case i < headerIdx:
			return
		case i == headerIdx:
			header = rowCells(tr)
		case tr.ChildrenFiltered("td").Length() > 0:
			data = append(data, rowCells(tr))
		}
	})

	if len(header) == 0 || len(data) == 0 {
		return types.CandidateTable{}, false
	}

	headers := uniqueHeaders(header)
	columns := make([][]string, len(headers))
	for c := range headers {
		col := make([]string, len(data))
		for r, cells := range data {
			if c < len(cells) {
				col[r] = cells[c]
			}
		}
		columns[c] = col
	}

	return types.CandidateTable{Headers: headers, Columns: columns}, true
}

func rowCells(tr *goquery.Selection) []string {
	var cells []string
	tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
		text := cellText(cell.Nodes[0])
		span, err := strconv.Atoi(strings.TrimSpace(cell.AttrOr("colspan", "1")))
		if err != nil || span < 1 {
			span = 1
		}
		if span > maxColspan {
			span = maxColspan
		}
		for i := 0; i < span; i++ {
			cells = append(cells, text)
		}
	})
	return cells
}

// cellText flattens a cell, reading line breaks and block elements as spaces.
func cellText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)

	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			case atom.Br:
				sb.WriteByte(' ')
				return
			case atom.Div, atom.P, atom.Li:
				defer sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return collapseSpace(sb.String())
}

func collapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func uniqueHeaders(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		if n, dup := seen[h]; dup {
			seen[h] = n + 1
			out[i] = fmt.Sprintf("%s.%d", h, n+1)
			continue
		}
		seen[h] = 0
		out[i] = h
	}
	return out
}
