package score

const notAvailable = "N/A"

// tier labels rows whose delivery percentage is at least min. Tiers are
// listed highest first; the last tier has min 0.
type tier struct {
	min   float64
	label string
}

var (
	technicalTiers = []tier{
		{95, "Strong accumulation"},
		{90, "Accumulation bias"},
		{85, "Positive delivery bias"},
		{0, "Neutral"},
	}
	priceActionTiers = []tier{
		{95, "Supportive (holders not squaring off)"},
		{85, "Supportive (delivery-backed)"},
		{0, "Neutral"},
	}
	fundamentalsTiers = []tier{
		{95, "Check for news or block deals"},
		{0, "Neutral (no earnings data)"},
	}
	driverTiers = []tier{
		{95, "Delivery-led accumulation"},
		{90, "Momentum + delivery expansion"},
		{85, "Delivery interest"},
		{0, "Range-bound"},
	}
)

type tagSet struct {
	technical    string
	priceAction  string
	fundamentals string
	driver       string
}

func tagsFor(dely float64) tagSet {
	return tagSet{
		technical:    lookup(technicalTiers, dely),
		priceAction:  lookup(priceActionTiers, dely),
		fundamentals: lookup(fundamentalsTiers, dely),
		driver:       lookup(driverTiers, dely),
	}
}

func lookup(tiers []tier, v float64) string {
	for _, t := range tiers {
		if v >= t.min {
			return t.label
		}
	}
	return notAvailable
}
