package table

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shanehull/dlvscan/internal/types"
)

// SchemaNotFoundError means the document has no table the pipeline can use.
// Retrying the fetch will not change the page structure.
type SchemaNotFoundError struct {
	Reason string
	Err    error
}

func (e *SchemaNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no usable table schema: %s: %v", e.Reason, e.Err)
	}
	return "no usable table schema: " + e.Reason
}

func (e *SchemaNotFoundError) Unwrap() error {
	return e.Err
}

// Resolve extracts the candidate tables from doc and selects one of them.
func Resolve(ctx context.Context, doc *types.RawDocument) (*types.Resolution, error) {
	if doc == nil {
		return nil, &SchemaNotFoundError{Reason: "no document"}
	}
	tables, err := Extract(doc.Body)
	if err != nil {
		return nil, &SchemaNotFoundError{Reason: "document could not be parsed", Err: err}
	}
	return Select(ctx, tables)
}

// Select applies the staged policy: the first table matching company and delivery
// by name, else the widest table with looser fallbacks. Delivery always resolves;
// when no column name qualifies the last column is used and the result is degraded.
func Select(ctx context.Context, tables []types.CandidateTable) (*types.Resolution, error) {
	logger := zerolog.Ctx(ctx)

	if len(tables) == 0 {
		return nil, &SchemaNotFoundError{Reason: "document contains no tables"}
	}

	for _, t := range tables {
		m := MatchColumns(t.Headers)
		if m.Complete() {
			logger.Debug().
				Int("table", t.Index).
				Str(types.FieldCompany, m.Company).
				Str(types.FieldPrice, m.Price).
				Str(types.FieldDeliveryPct, m.DeliveryPct).
				Msg("Resolved table by column names")
			return &types.Resolution{
				Table:      t,
				Match:      m,
				Confidence: types.ConfidenceFull,
				Candidates: len(tables),
			}, nil
		}
	}

	widest := tables[0]
	for _, t := range tables[1:] {
		if t.Width() > widest.Width() {
			widest = t
		}
	}
	if widest.Width() == 0 {
		return nil, &SchemaNotFoundError{Reason: "no table has any columns"}
	}

	m := MatchColumns(widest.Headers)
	confidence := types.ConfidencePartial

	if m.DeliveryPct == "" {
		m.DeliveryPct = widest.Headers[widest.Width()-1]
		if m.Price == m.DeliveryPct {
			m.Price = ""
		}
		if m.Company == m.DeliveryPct {
			m.Company = ""
		}
		confidence = types.ConfidenceDegraded
		logger.Warn().
			Int("table", widest.Index).
			Strs("headers", widest.Headers).
			Str(types.FieldDeliveryPct, m.DeliveryPct).
			Msg("Degraded: no delivery column found by name, using last column")
	}

	if m.Company == "" {
		m.Company = fallbackCompany(widest.Headers, m.DeliveryPct, m.Price)
	}

	logger.Warn().
		Int("table", widest.Index).
		Int("candidates", len(tables)).
		Str(types.FieldCompany, m.Company).
		Str(types.FieldPrice, m.Price).
		Str(types.FieldDeliveryPct, m.DeliveryPct).
		Str("confidence", string(confidence)).
		Msg("No table matched the full schema, using widest table")

	return &types.Resolution{
		Table:      widest,
		Match:      m,
		Confidence: confidence,
		Candidates: len(tables),
	}, nil
}
