package notify

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/shanehull/dlvscan/internal/ai"
	"github.com/shanehull/dlvscan/internal/types"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func sampleReport() *types.Report {
	return &types.Report{
		RunID:       "run-1",
		GeneratedAt: time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC), // 17 Oct 01:30 IST
		SourceURL:   "https://example.com/deliverables",
		Threshold:   85,
		Confidence:  types.ConfidenceFull,
		Schema:      types.SchemaMatch{Company: "Company Name", Price: "Last Price", DeliveryPct: "Dely %"},
		Stats:       types.NormalizeStats{Total: 3, Kept: 3},
		Picks: []types.Pick{
			{
				Rank: 1,
				Row:  types.NormalizedRow{Company: "Gamma & Sons", Price: 200, HasPrice: true, DeliveryPct: 95},
				Analysis: types.AnalysisResult{
					Sufficient: true, Status: types.StatusOK, Bullish: true,
					VolatilityPct: 6, ProbabilityPct: 84, UpsideTargetPrice: 224, UpsidePct: 12,
					StopLossPrice: 188, StopLossPct: 6, RiskRewardRatio: 2,
					TechnicalSetup: "Strong accumulation", PriceAction: "Supportive", FundamentalsNote: "Neutral", KeyDriver: "Delivery-led accumulation",
				},
				Commentary: &ai.Commentary{SwingView: "Breakout above 205", Support: []float64{190, 185.5}, Risks: []string{"Weak market breadth"}},
			},
			{
				Rank: 2,
				Row:  types.NormalizedRow{Company: "Alpha", DeliveryPct: 92.5},
				Analysis: types.AnalysisResult{
					Status: types.InsufficientData, TechnicalSetup: "N/A", PriceAction: "N/A", FundamentalsNote: "N/A", KeyDriver: "N/A",
				},
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"":         FormatText,
		"TEXT":     FormatText,
		" json ":   FormatJSON,
		"yml":      FormatYAML,
		"html":     FormatHTML,
		"md":       FormatMarkdown,
		"markdown": FormatMarkdown,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestRender_Email(t *testing.T) {
	msg, err := NewHTMLEmailRenderer(ist).Render(sampleReport())
	require.NoError(t, err)

	assert.Equal(t, "High Delivery & Analysis Alert - 17 Oct 2026", msg.Subject)

	assert.Contains(t, msg.HTML, "Gamma &amp; Sons")
	assert.Contains(t, msg.HTML, "₹224.00 (+12%)")
	assert.Contains(t, msg.HTML, `class="pill high"`)
	assert.Contains(t, msg.HTML, "Breakout above 205")
	assert.Contains(t, msg.HTML, "₹190.00, ₹185.50")
	assert.Contains(t, msg.HTML, "Insufficient data")
	assert.NotContains(t, msg.HTML, "Check the source page layout")

	assert.Contains(t, msg.Text, "1. Gamma & Sons (bullish)")
	assert.Contains(t, msg.Text, "Stop Loss:       ₹188.00 (-6%)")
	assert.Contains(t, msg.Text, "CMP:             N/A")
	assert.Contains(t, msg.Text, "• Weak market breadth")
}

func TestRender_EmptySelection(t *testing.T) {
	report := sampleReport()
	report.Picks = nil

	msg, err := NewHTMLEmailRenderer(ist).Render(report)
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "No stock crossed the 85% delivery threshold today.")
	assert.Contains(t, msg.Text, "No stock crossed the 85% delivery threshold today.")
}

func TestRender_DegradedConfidenceWarns(t *testing.T) {
	report := sampleReport()
	report.Confidence = types.ConfidenceDegraded
	report.Schema.DeliveryPct = "Column 7"

	msg, err := NewHTMLEmailRenderer(nil).Render(report)
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "degraded confidence (delivery column: Column 7)")
	assert.Contains(t, msg.Text, "degraded confidence")
}

func TestComposer_Write(t *testing.T) {
	c := NewComposer(ist)
	report := sampleReport()

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, c.Write(&buf, report, FormatJSON))

		var decoded types.Report
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, report.Selection(), decoded.Selection())
		assert.Equal(t, 224.0, decoded.Picks[0].Analysis.UpsideTargetPrice)
		assert.Nil(t, decoded.Picks[1].Commentary)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, c.Write(&buf, report, FormatYAML))
		assert.Contains(t, buf.String(), "delivery_pct: 95")

		var decoded map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "run-1", decoded["run_id"])
	})

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, c.Write(&buf, report, FormatMarkdown))
		out := buf.String()
		assert.Contains(t, out, "Gamma & Sons")
		assert.Contains(t, out, "|")
		assert.NotContains(t, out, "<table")
		assert.NotContains(t, out, "border-collapse")
	})

	t.Run("html", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, c.Write(&buf, report, FormatHTML))
		assert.True(t, strings.HasPrefix(buf.String(), "<!DOCTYPE html>"))
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, c.Write(&buf, report, FormatText))
		assert.Contains(t, buf.String(), "High Delivery Stock Analysis - 17 Oct 2026")
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, c.Write(&bytes.Buffer{}, report, Format("pdf")))
	})
}

func TestEmailSender_BuildMessage(t *testing.T) {
	s := NewEmailSender(EmailConfig{
		FromEmail: "scanner@example.com",
		ToEmails:  []string{"a@example.com", "b@example.com"},
		Enabled:   true,
	})

	m, err := s.buildMessage(&RenderedMessage{Subject: "High Delivery & Analysis Alert - 17 Oct 2026", Text: "plain", HTML: "<p>rich</p>"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a@example.com", "b@example.com"}, m.GetHeader("To"))

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "text/html")
}

func TestEmailSender_NoRecipients(t *testing.T) {
	s := NewEmailSender(EmailConfig{Enabled: true})
	_, err := s.buildMessage(&RenderedMessage{Subject: "x", Text: "y"})
	assert.Error(t, err)
}

func TestEmailSender_DisabledIsNoop(t *testing.T) {
	s := NewEmailSender(EmailConfig{})
	assert.NoError(t, s.Send(t.Context(), &RenderedMessage{Subject: "x"}))
}
