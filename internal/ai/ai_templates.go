package ai

import (
	"fmt"
	"strings"
)

const systemInstruction = `
# [INSTRUCTION]

You are a stock swing trading assistant covering NSE listed equities.

You are given a stock whose delivery percentage (the share of traded volume settled by actual transfer of shares rather than squared off intraday) was unusually high in the last session. Price levels for the trade have already been computed; do not replace them.

Describe the 10-14 day swing setup around those levels.

---

# [CONSTRAINTS]

- Keep every view within a realistic 10-14 day swing range.
- Never suggest an upside beyond 15% in 14 days.
- Support and resistance levels must be prices in rupees, nearest first.
- If you do not know something, say "Unknown" rather than guessing.
- Return only the JSON object described by the response schema.
`

var userPromptTemplate = `
Stock: %s
Date (IST): %s
Current price (CMP): ₹%.2f
Delivery %%: %.2f
%s
`

func buildUserPrompt(in StockInput) string {
	var levels []string
	if in.UpsideTargetPrice > 0 {
		levels = append(levels, fmt.Sprintf("Computed upside target: ₹%.2f", in.UpsideTargetPrice))
	}
	if in.StopLossPrice > 0 {
		levels = append(levels, fmt.Sprintf("Computed stop loss: ₹%.2f", in.StopLossPrice))
	}

	return fmt.Sprintf(userPromptTemplate,
		in.Company,
		in.Date.Format("2006-01-02"),
		in.Price,
		in.DeliveryPct,
		strings.Join(levels, "\n"),
	)
}
