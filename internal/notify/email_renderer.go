package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/shanehull/dlvscan/internal/types"
)

// RenderedMessage is a ready-to-send e-mail.
type RenderedMessage struct {
	Subject string
	Text    string
	HTML    string
}

type reportView struct {
	Report *types.Report
	Date   string
}

// HTMLEmailRenderer renders reports as HTML emails with a plain text fallback.
type HTMLEmailRenderer struct {
	tmpl *template.Template
	loc  *time.Location
}

// NewHTMLEmailRenderer creates a renderer that prints dates in loc (UTC when nil).
func NewHTMLEmailRenderer(loc *time.Location) *HTMLEmailRenderer {
	if loc == nil {
		loc = time.UTC
	}
	t := template.Must(template.New("email").Funcs(templateFuncs).Parse(emailHTMLTemplate))
	template.Must(t.Parse(reportTemplate))
	return &HTMLEmailRenderer{tmpl: t, loc: loc}
}

var templateFuncs = template.FuncMap{
	"price":    formatPrice,
	"num":      formatNum,
	"tspClass": probabilityClass,
	"levels":   formatLevels,
	"join":     strings.Join,
}

// Subject is dated in the renderer's location.
func (r *HTMLEmailRenderer) Subject(report *types.Report) string {
	return fmt.Sprintf("High Delivery & Analysis Alert - %s", r.date(report))
}

// Render produces an HTML email with plain text alternative.
func (r *HTMLEmailRenderer) Render(report *types.Report) (*RenderedMessage, error) {
	var htmlBuf bytes.Buffer
	if err := r.tmpl.Execute(&htmlBuf, r.view(report)); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}

	return &RenderedMessage{
		Subject: r.Subject(report),
		Text:    renderPlainText(report, r.date(report)),
		HTML:    htmlBuf.String(),
	}, nil
}

// renderBody renders only the report section, without the document shell and styles.
func (r *HTMLEmailRenderer) renderBody(report *types.Report) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "report", r.view(report)); err != nil {
		return "", fmt.Errorf("failed to render report template: %w", err)
	}
	return buf.String(), nil
}

func (r *HTMLEmailRenderer) view(report *types.Report) reportView {
	return reportView{Report: report, Date: r.date(report)}
}

func (r *HTMLEmailRenderer) date(report *types.Report) string {
	return report.GeneratedAt.In(r.loc).Format("02 Jan 2006")
}

// renderPlainText produces a readable plain text version for email clients that don't support HTML.
func renderPlainText(report *types.Report, date string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("High Delivery Stock Analysis - %s\n", date))
	sb.WriteString(strings.Repeat("=", 50) + "\n")
	sb.WriteString(fmt.Sprintf("Filter: Delivery >= %s%%\n\n", formatNum(report.Threshold)))

	if report.Confidence != types.ConfidenceFull {
		sb.WriteString(fmt.Sprintf("⚠ Columns matched with %s confidence (delivery column: %s)\n\n", report.Confidence, report.Schema.DeliveryPct))
	}

	if len(report.Picks) == 0 {
		sb.WriteString(fmt.Sprintf("No stock crossed the %s%% delivery threshold today.\n", formatNum(report.Threshold)))
		return sb.String()
	}

	for _, p := range report.Picks {
		writePick(&sb, p)
	}
	return sb.String()
}

func writePick(sb *strings.Builder, p types.Pick) {
	a := p.Analysis

	title := fmt.Sprintf("%d. %s", p.Rank, p.Row.Company)
	if a.Bullish {
		title += " (bullish)"
	}
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", 20) + "\n")

	cmp := "N/A"
	if p.Row.HasPrice {
		cmp = formatPrice(p.Row.Price)
	}
	sb.WriteString(fmt.Sprintf("CMP:             %s\n", cmp))
	sb.WriteString(fmt.Sprintf("Delivery:        %s%%\n", formatNum(p.Row.DeliveryPct)))

	if a.Sufficient {
		sb.WriteString(fmt.Sprintf("Upside Target:   %s (+%s%%)\n", formatPrice(a.UpsideTargetPrice), formatNum(a.UpsidePct)))
		sb.WriteString(fmt.Sprintf("Stop Loss:       %s (-%s%%)\n", formatPrice(a.StopLossPrice), formatNum(a.StopLossPct)))
		sb.WriteString(fmt.Sprintf("Risk : Reward:   1 : %s\n", formatNum(a.RiskRewardRatio)))
		sb.WriteString(fmt.Sprintf("Probability:     %s%%\n", formatNum(a.ProbabilityPct)))
	} else {
		sb.WriteString("Analysis:        Insufficient data\n")
	}

	sb.WriteString(fmt.Sprintf("Technical Setup: %s\n", a.TechnicalSetup))
	sb.WriteString(fmt.Sprintf("Price Action:    %s\n", a.PriceAction))
	sb.WriteString(fmt.Sprintf("Fundamentals:    %s\n", a.FundamentalsNote))
	sb.WriteString(fmt.Sprintf("Key Driver:      %s\n", a.KeyDriver))

	if c := p.Commentary; c != nil {
		if c.SwingView != "" {
			sb.WriteString(fmt.Sprintf("Swing View:      %s\n", c.SwingView))
		}
		if len(c.Support) > 0 {
			sb.WriteString(fmt.Sprintf("Support:         %s\n", formatLevels(c.Support)))
		}
		if len(c.Resistance) > 0 {
			sb.WriteString(fmt.Sprintf("Resistance:      %s\n", formatLevels(c.Resistance)))
		}
		for _, risk := range c.Risks {
			sb.WriteString(fmt.Sprintf("• %s\n", risk))
		}
	}
	sb.WriteString("\n")
}

func formatPrice(v float64) string {
	return "₹" + strconv.FormatFloat(v, 'f', 2, 64)
}

// formatNum drops trailing zeros: 85 -> "85", 92.50 -> "92.5".
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatLevels(levels []float64) string {
	out := make([]string, 0, len(levels))
	for _, l := range levels {
		out = append(out, formatPrice(l))
	}
	return strings.Join(out, ", ")
}

func probabilityClass(p float64) string {
	switch {
	case p >= 75:
		return "high"
	case p >= 55:
		return "mid"
	default:
		return "low"
	}
}
