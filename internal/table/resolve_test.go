package table

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanehull/dlvscan/internal/types"
)

func makeTable(index int, headers []string, rows ...[]string) types.CandidateTable {
	cols := make([][]string, len(headers))
	for c := range headers {
		cols[c] = make([]string, len(rows))
		for r, row := range rows {
			cols[c][r] = row[c]
		}
	}
	return types.CandidateTable{Index: index, Headers: headers, Columns: cols}
}

// A full name match wins over an earlier table that only partly matches.
func TestResolve_PrefersFullMatch(t *testing.T) {
	page := `<html><body>
<table><tr><th>Name</th><th>Dely %</th></tr><tr><td>Alpha</td><td>92.5</td></tr></table>
<table><tr><th>Company Name</th><th>Last Price</th><th>Delivery Percent</th></tr><tr><td>Beta</td><td>50</td><td>70</td></tr></table>
</body></html>`

	res, err := Resolve(context.Background(), &types.RawDocument{Body: []byte(page)})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Table.Index)
	assert.Equal(t, types.ConfidenceFull, res.Confidence)
	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, types.SchemaMatch{
		Company:     "Company Name",
		Price:       "Last Price",
		DeliveryPct: "Delivery Percent",
	}, res.Match)
}

func TestSelect_FallsBackToWidest(t *testing.T) {
	tables := []types.CandidateTable{
		makeTable(0, []string{"Name", "Dely %"}, []string{"Alpha", "92.5"}),
		makeTable(1, []string{"Symbol", "LTP", "Traded Qty", "Dely %"}, []string{"BETA", "50", "100", "70"}),
	}

	res, err := Select(context.Background(), tables)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Table.Index)
	assert.Equal(t, types.ConfidencePartial, res.Confidence)
	assert.Equal(t, "Dely %", res.Match.DeliveryPct)
	assert.Equal(t, "Symbol", res.Match.Company)
	assert.Equal(t, "LTP", res.Match.Price)
}

func TestSelect_WidestTieKeepsFirst(t *testing.T) {
	tables := []types.CandidateTable{
		makeTable(0, []string{"Name", "Dely %"}, []string{"Alpha", "92.5"}),
		makeTable(1, []string{"Stock", "Del %"}, []string{"Beta", "70"}),
	}

	res, err := Select(context.Background(), tables)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Table.Index)
	assert.Equal(t, "Name", res.Match.Company)
}

func TestSelect_DegradesToLastColumn(t *testing.T) {
	tables := []types.CandidateTable{
		makeTable(0, []string{"Stock", "Close", "Ratio"}, []string{"Alpha", "100", "92.5"}),
	}

	res, err := Select(context.Background(), tables)
	require.NoError(t, err)

	assert.Equal(t, types.ConfidenceDegraded, res.Confidence)
	assert.Equal(t, "Ratio", res.Match.DeliveryPct)
	assert.Equal(t, "Stock", res.Match.Company)
	assert.Equal(t, "Close", res.Match.Price)
}

func TestSelect_DegradedLastColumnIsNotAlsoCompany(t *testing.T) {
	tables := []types.CandidateTable{
		makeTable(0, []string{"Pct", "LTP", "Company Name"}, []string{"92.5", "100", "Alpha"}),
	}

	res, err := Select(context.Background(), tables)
	require.NoError(t, err)

	assert.Equal(t, types.ConfidenceDegraded, res.Confidence)
	assert.Equal(t, "Company Name", res.Match.DeliveryPct)
	assert.Equal(t, "LTP", res.Match.Price)
	assert.Equal(t, "Pct", res.Match.Company)
	assert.NotEqual(t, res.Match.Company, res.Match.DeliveryPct)
}

func TestSelect_DegradedColumnsAreDistinct(t *testing.T) {
	headerSets := [][]string{
		{"Pct", "LTP", "Company Name"},
		{"Company Name", "Last Price"},
		{"Stock", "Close", "Ratio"},
		{"x", "Company Name"},
	}
	for _, headers := range headerSets {
		row := make([]string, len(headers))
		res, err := Select(context.Background(), []types.CandidateTable{makeTable(0, headers, row)})
		require.NoError(t, err)

		m := res.Match
		if m.Company != "" {
			assert.NotEqual(t, m.Company, m.DeliveryPct, "headers %v", headers)
			assert.NotEqual(t, m.Company, m.Price, "headers %v", headers)
		}
		if m.Price != "" {
			assert.NotEqual(t, m.Price, m.DeliveryPct, "headers %v", headers)
		}
	}
}

func TestSelect_DegradedLastColumnIsNotAlsoPrice(t *testing.T) {
	tables := []types.CandidateTable{
		makeTable(0, []string{"Stock", "Close"}, []string{"Alpha", "100"}),
	}

	res, err := Select(context.Background(), tables)
	require.NoError(t, err)

	assert.Equal(t, "Close", res.Match.DeliveryPct)
	assert.Empty(t, res.Match.Price)
	assert.Equal(t, "Stock", res.Match.Company)
}

func TestSelect_DeliveryAlwaysResolves(t *testing.T) {
	headerSets := [][]string{
		{"A"},
		{"A", "B"},
		{"Company Name", "Last Price"},
		{"x", "y", "z", "Dely %"},
	}
	for _, headers := range headerSets {
		row := make([]string, len(headers))
		res, err := Select(context.Background(), []types.CandidateTable{makeTable(0, headers, row)})
		require.NoError(t, err)
		assert.NotEmpty(t, res.Match.DeliveryPct, "headers %v", headers)
	}
}

func TestResolve_NoTables(t *testing.T) {
	_, err := Resolve(context.Background(), &types.RawDocument{Body: []byte("<html><body>blocked</body></html>")})

	var schemaErr *SchemaNotFoundError
	require.True(t, errors.As(err, &schemaErr))
	assert.Contains(t, schemaErr.Error(), "no tables")
}

func TestResolve_NilDocument(t *testing.T) {
	_, err := Resolve(context.Background(), nil)

	var schemaErr *SchemaNotFoundError
	assert.True(t, errors.As(err, &schemaErr))
}
