package notify

const emailHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>High Delivery Stock Analysis – {{.Date}}</title>
  <style>
    body {
      margin: 0;
      padding: 24px;
      background-color: #f3f4f6;
      font-family: Arial, Helvetica, sans-serif;
      color: #111827;
      line-height: 1.5;
    }

    .container {
      max-width: 760px;
      margin: 0 auto;
    }

    .header {
      padding: 20px 24px;
      border-radius: 8px;
      background: linear-gradient(135deg, #463737 0%, #37393b 100%);
      color: #ffffff;
    }

    .title {
      font-size: 20px;
      font-weight: 800;
      margin-bottom: 4px;
    }

    .muted {
      font-size: 12px;
      opacity: 0.85;
    }

    .warning {
      margin-top: 12px;
      padding: 8px 12px;
      font-size: 13px;
      background: #fff8e1;
      color: #8a6d3b;
      border-radius: 6px;
    }

    .card {
      margin: 14px 0;
      padding: 14px 16px;
      background: #ffffff;
      border: 2px solid #000000;
      border-radius: 10px;
      box-shadow: 2px 3px 8px #d1d9ee;
    }

    .card-head {
      font-size: 15px;
      font-weight: 700;
      color: #1f2937;
      margin-bottom: 6px;
    }

    .badge {
      display: inline-block;
      margin-left: 6px;
      padding: 2px 8px;
      font-size: 11px;
      font-weight: 600;
      border-radius: 4px;
      background: #e6f4ea;
      color: #137333;
      text-transform: uppercase;
    }

    table.kpi {
      width: 100%;
      border-collapse: collapse;
      border: 1px solid #000000;
    }

    table.kpi td {
      padding: 8px 10px;
      font-size: 14px;
      vertical-align: top;
      border: 1px solid #000000;
    }

    table.kpi td.label {
      width: 200px;
      white-space: nowrap;
      color: #374151;
    }

    .pill {
      padding: 2px 8px;
      border-radius: 12px;
      font-weight: 700;
    }

    .pill.high {
      background: #e6f4ea;
      color: #137333;
    }

    .pill.mid {
      background: #fff8e1;
      color: #8a6d3b;
    }

    .pill.low {
      background: #fce8e6;
      color: #a50e0e;
    }

    .empty {
      margin: 14px 0;
      padding: 16px;
      background: #ffffff;
      border-radius: 8px;
      font-size: 14px;
    }

    .footer {
      padding: 16px 24px;
      font-size: 12px;
      color: #9ca3af;
      text-align: center;
    }

    a {
      color: #0b3d91;
      text-decoration: none;
    }
  </style>
</head>
<body>
  <div class="container">
    {{template "report" .}}
    <div class="footer">
      Generated by <a href="https://github.com/shanehull/dlvscan" target="_blank" rel="noopener">dlvscan</a> · run {{.Report.RunID}}<br>
      Illustrative values derived from price and delivery only. Not investment advice.
    </div>
  </div>
</body>
</html>`

// reportTemplate is the body shared by the e-mail and the markdown report.
const reportTemplate = `{{define "report"}}
<div class="header">
  <div class="title">High Delivery Stock Analysis</div>
  <div class="muted">Date (IST): {{.Date}} · Filter: Delivery ≥ {{num .Report.Threshold}}% · {{len .Report.Picks}} stock(s)</div>
</div>
{{if ne .Report.Confidence "full"}}
<div class="warning">Table columns were matched with {{.Report.Confidence}} confidence (delivery column: {{.Report.Schema.DeliveryPct}}). Check the source page layout.</div>
{{end}}
{{range .Report.Picks}}
<div class="card">
  <div class="card-head">{{.Rank}}. {{.Row.Company}}{{if .Analysis.Bullish}}<span class="badge">Bullish</span>{{end}}</div>
  <table class="kpi">
    <tr><td class="label">CMP</td><td>{{if .Row.HasPrice}}{{price .Row.Price}}{{else}}N/A{{end}}</td></tr>
    <tr><td class="label">Delivery %</td><td>{{num .Row.DeliveryPct}}%</td></tr>
    {{if .Analysis.Sufficient}}
    <tr><td class="label">Upside Target</td><td>{{price .Analysis.UpsideTargetPrice}} (+{{num .Analysis.UpsidePct}}%)</td></tr>
    <tr><td class="label">Stop Loss</td><td>{{price .Analysis.StopLossPrice}} (−{{num .Analysis.StopLossPct}}%)</td></tr>
    <tr><td class="label">Risk : Reward</td><td>1 : {{num .Analysis.RiskRewardRatio}}</td></tr>
    <tr><td class="label">Probability</td><td><span class="pill {{tspClass .Analysis.ProbabilityPct}}">{{num .Analysis.ProbabilityPct}}%</span></td></tr>
    <tr><td class="label">Volatility (proxy)</td><td>{{num .Analysis.VolatilityPct}}%</td></tr>
    {{else}}
    <tr><td class="label">Analysis</td><td>Insufficient data</td></tr>
    {{end}}
    <tr><td class="label">Technical Setup</td><td>{{.Analysis.TechnicalSetup}}</td></tr>
    <tr><td class="label">Price Action</td><td>{{.Analysis.PriceAction}}</td></tr>
    <tr><td class="label">Fundamentals</td><td>{{.Analysis.FundamentalsNote}}</td></tr>
    <tr><td class="label">Key Driver</td><td>{{.Analysis.KeyDriver}}</td></tr>
    {{with .Commentary}}
    {{if .MarketCapCategory}}<tr><td class="label">Market Cap</td><td>{{.MarketCapCategory}}</td></tr>{{end}}
    {{if .SwingView}}<tr><td class="label">Swing View</td><td>{{.SwingView}}</td></tr>{{end}}
    {{if .Support}}<tr><td class="label">Support</td><td>{{levels .Support}}</td></tr>{{end}}
    {{if .Resistance}}<tr><td class="label">Resistance</td><td>{{levels .Resistance}}</td></tr>{{end}}
    {{if .Fundamentals}}<tr><td class="label">Fundamentals (AI)</td><td>{{.Fundamentals}}</td></tr>{{end}}
    {{if .Risks}}<tr><td class="label">Risks</td><td>{{join .Risks "; "}}</td></tr>{{end}}
    {{end}}
  </table>
</div>
{{else}}
<div class="empty">No stock crossed the {{num .Report.Threshold}}% delivery threshold today.</div>
{{end}}
{{end}}`
