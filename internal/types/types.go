package types

import (
	"time"

	"github.com/shanehull/dlvscan/internal/ai"
)

// Canonical field names resolved by the table matcher.
const (
	FieldCompany     = "company"
	FieldPrice       = "price"
	FieldDeliveryPct = "delivery_pct"
)

type RawDocument struct {
	URL        string
	Body       []byte
	StatusCode int
	Length     int
	FetchedAt  time.Time
	Attempts   int
}

// CandidateTable is one tabular structure found in a document. Columns[i] holds
// the cells of Headers[i]; every column has the same number of cells.
type CandidateTable struct {
	Index   int
	Headers []string
	Columns [][]string
}

func (t CandidateTable) Width() int {
	return len(t.Headers)
}

func (t CandidateTable) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0])
}

// Column returns the cells of the named column, or nil when absent.
func (t CandidateTable) Column(name string) []string {
	for i, h := range t.Headers {
		if h == name {
			return t.Columns[i]
		}
	}
	return nil
}

// SchemaMatch maps canonical fields to the column names found for them.
// An empty string means the field did not resolve.
type SchemaMatch struct {
	Company     string `json:"company" yaml:"company"`
	Price       string `json:"price" yaml:"price"`
	DeliveryPct string `json:"delivery_pct" yaml:"delivery_pct"`
}

func (m SchemaMatch) Complete() bool {
	return m.Company != "" && m.DeliveryPct != ""
}

type Confidence string

const (
	ConfidenceFull     Confidence = "full"
	ConfidencePartial  Confidence = "partial"
	ConfidenceDegraded Confidence = "degraded"
)

// Resolution is the table chosen for a run together with its schema match.
type Resolution struct {
	Table      CandidateTable
	Match      SchemaMatch
	Confidence Confidence
	Candidates int
}

type NormalizedRow struct {
	Company     string  `json:"company" yaml:"company"`
	Price       float64 `json:"price" yaml:"price"`
	HasPrice    bool    `json:"has_price" yaml:"has_price"`
	DeliveryPct float64 `json:"delivery_pct" yaml:"delivery_pct"`
}

type NormalizeStats struct {
	Total        int `json:"total" yaml:"total"`
	Kept         int `json:"kept" yaml:"kept"`
	DroppedParse int `json:"dropped_parse" yaml:"dropped_parse"`
	DroppedRange int `json:"dropped_range" yaml:"dropped_range"`
}

// RankedSelection is ordered by delivery percentage, highest first.
type RankedSelection []NormalizedRow

// AnalysisResult statuses.
const (
	StatusOK         = "ok"
	InsufficientData = "insufficient data"
)

type AnalysisResult struct {
	Sufficient        bool    `json:"sufficient" yaml:"sufficient"`
	Status            string  `json:"status" yaml:"status"`
	Bullish           bool    `json:"bullish" yaml:"bullish"`
	VolatilityPct     float64 `json:"volatility_pct" yaml:"volatility_pct"`
	ProbabilityPct    float64 `json:"probability_pct" yaml:"probability_pct"`
	UpsideTargetPrice float64 `json:"upside_target_price" yaml:"upside_target_price"`
	UpsidePct         float64 `json:"upside_pct" yaml:"upside_pct"`
	StopLossPrice     float64 `json:"stop_loss_price" yaml:"stop_loss_price"`
	StopLossPct       float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	RiskRewardRatio   float64 `json:"risk_reward_ratio" yaml:"risk_reward_ratio"`
	TechnicalSetup    string  `json:"technical_setup" yaml:"technical_setup"`
	PriceAction       string  `json:"price_action" yaml:"price_action"`
	FundamentalsNote  string  `json:"fundamentals_note" yaml:"fundamentals_note"`
	KeyDriver         string  `json:"key_driver" yaml:"key_driver"`
}

// Pick pairs a selected row with its analysis. Commentary is optional
// enrichment and never changes the computed numbers.
type Pick struct {
	Rank       int            `json:"rank" yaml:"rank"`
	Row        NormalizedRow  `json:"row" yaml:"row"`
	Analysis   AnalysisResult `json:"analysis" yaml:"analysis"`
	Commentary *ai.Commentary `json:"commentary,omitempty" yaml:"commentary,omitempty"`
}

type Report struct {
	RunID       string         `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
	SourceURL   string         `json:"source_url" yaml:"source_url"`
	Threshold   float64        `json:"threshold" yaml:"threshold"`
	MaxRows     int            `json:"max_rows" yaml:"max_rows"`
	Confidence  Confidence     `json:"confidence" yaml:"confidence"`
	Schema      SchemaMatch    `json:"schema" yaml:"schema"`
	Stats       NormalizeStats `json:"stats" yaml:"stats"`
	Picks       []Pick         `json:"picks" yaml:"picks"`
}

// Selection returns the ranked rows in report order.
func (r *Report) Selection() RankedSelection {
	sel := make(RankedSelection, 0, len(r.Picks))
	for _, p := range r.Picks {
		sel = append(sel, p.Row)
	}
	return sel
}
