/*
Package score derives swing-trade style metrics for a selected row from its
price and delivery percentage alone.

The constants in Policy are heuristics, not estimates fitted to market data.
*/
package score

import (
	"errors"
	"fmt"
	"math"

	"github.com/shanehull/dlvscan/internal/types"
)

// Policy holds the tunable constants of the heuristic.
type Policy struct {
	// Volatility proxy, in percent of price:
	// clamp(MinVolatilityPct + (delivery - BaselineDelivery) * VolatilityPerPoint).
	BaselineDelivery   float64 `mapstructure:"baseline_delivery" yaml:"baseline_delivery"`
	VolatilityPerPoint float64 `mapstructure:"volatility_per_point" yaml:"volatility_per_point"`
	MinVolatilityPct   float64 `mapstructure:"min_volatility_pct" yaml:"min_volatility_pct"`
	MaxVolatilityPct   float64 `mapstructure:"max_volatility_pct" yaml:"max_volatility_pct"`

	ProbabilityBase      float64 `mapstructure:"probability_base" yaml:"probability_base"`
	ProbabilityPerVolPct float64 `mapstructure:"probability_per_vol_pct" yaml:"probability_per_vol_pct"`
	MinProbability       float64 `mapstructure:"min_probability" yaml:"min_probability"`
	MaxProbability       float64 `mapstructure:"max_probability" yaml:"max_probability"`

	// Rows with delivery strictly above BullishThreshold use BullishMultiplier.
	BullishThreshold  float64 `mapstructure:"bullish_threshold" yaml:"bullish_threshold"`
	BullishMultiplier float64 `mapstructure:"bullish_multiplier" yaml:"bullish_multiplier"`
	NeutralMultiplier float64 `mapstructure:"neutral_multiplier" yaml:"neutral_multiplier"`

	// Stop distance is the target distance divided by RiskReward.
	RiskReward float64 `mapstructure:"risk_reward" yaml:"risk_reward"`
}

func DefaultPolicy() Policy {
	return Policy{
		BaselineDelivery:     50,
		VolatilityPerPoint:   0.1,
		MinVolatilityPct:     1.5,
		MaxVolatilityPct:     7.5,
		ProbabilityBase:      60,
		ProbabilityPerVolPct: 4,
		MinProbability:       20,
		MaxProbability:       95,
		BullishThreshold:     90,
		BullishMultiplier:    2.0,
		NeutralMultiplier:    1.5,
		RiskReward:           2,
	}
}

// Validate reports the first constraint the policy breaks.
func (p Policy) Validate() error {
	for name, v := range map[string]float64{
		"baseline_delivery":       p.BaselineDelivery,
		"volatility_per_point":    p.VolatilityPerPoint,
		"min_volatility_pct":      p.MinVolatilityPct,
		"max_volatility_pct":      p.MaxVolatilityPct,
		"probability_base":        p.ProbabilityBase,
		"probability_per_vol_pct": p.ProbabilityPerVolPct,
		"min_probability":         p.MinProbability,
		"max_probability":         p.MaxProbability,
		"bullish_threshold":       p.BullishThreshold,
		"bullish_multiplier":      p.BullishMultiplier,
		"neutral_multiplier":      p.NeutralMultiplier,
		"risk_reward":             p.RiskReward,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite", name)
		}
	}

	switch {
	case p.RiskReward < 1:
		return fmt.Errorf("risk_reward must be at least 1, got %v", p.RiskReward)
	case p.MinVolatilityPct <= 0:
		return errors.New("min_volatility_pct must be positive")
	case p.MaxVolatilityPct < p.MinVolatilityPct:
		return errors.New("max_volatility_pct is below min_volatility_pct")
	case p.BullishMultiplier <= 0 || p.NeutralMultiplier <= 0:
		return errors.New("target multipliers must be positive")
	case p.MinProbability < 0 || p.MaxProbability > 100 || p.MinProbability > p.MaxProbability:
		return fmt.Errorf("probability band [%v, %v] must lie within [0, 100]", p.MinProbability, p.MaxProbability)
	}

	// The narrowest stop must survive rounding to two decimals.
	if round2(p.MinVolatilityPct*math.Min(p.BullishMultiplier, p.NeutralMultiplier)/p.RiskReward) <= 0 {
		return errors.New("smallest stop loss rounds to zero; widen the volatility band or lower risk_reward")
	}
	return nil
}

type Scorer struct {
	policy Policy
}

func New(p Policy) (*Scorer, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring policy: %w", err)
	}
	return &Scorer{policy: p}, nil
}

// Score never fails. A row without a usable positive price gets the
// insufficient data result.
func (s *Scorer) Score(row types.NormalizedRow) types.AnalysisResult {
	price, dely := row.Price, row.DeliveryPct
	if !row.HasPrice || !finite(price) || !finite(dely) || price <= 0 {
		return insufficient()
	}

	p := s.policy

	volPct := clamp(p.MinVolatilityPct+(dely-p.BaselineDelivery)*p.VolatilityPerPoint, p.MinVolatilityPct, p.MaxVolatilityPct)
	probability := clamp(p.ProbabilityBase+volPct*p.ProbabilityPerVolPct, p.MinProbability, p.MaxProbability)

	bullish := dely > p.BullishThreshold
	multiplier := p.NeutralMultiplier
	if bullish {
		multiplier = p.BullishMultiplier
	}

	upsidePct := volPct * multiplier
	stopPct := upsidePct / p.RiskReward

	target := round2(price * (1 + upsidePct/100))
	stop := round2(price * (1 - stopPct/100))
	if !finite(target) || !finite(stop) {
		return insufficient()
	}

	tags := tagsFor(dely)

	return types.AnalysisResult{
		Sufficient:        true,
		Status:            types.StatusOK,
		Bullish:           bullish,
		VolatilityPct:     round2(volPct),
		ProbabilityPct:    round2(probability),
		UpsideTargetPrice: target,
		UpsidePct:         round2(upsidePct),
		StopLossPrice:     stop,
		StopLossPct:       round2(stopPct),
		RiskRewardRatio:   round2(upsidePct / stopPct),
		TechnicalSetup:    tags.technical,
		PriceAction:       tags.priceAction,
		FundamentalsNote:  tags.fundamentals,
		KeyDriver:         tags.driver,
	}
}

func insufficient() types.AnalysisResult {
	return types.AnalysisResult{
		Status:           types.InsufficientData,
		TechnicalSetup:   notAvailable,
		PriceAction:      notAvailable,
		FundamentalsNote: notAvailable,
		KeyDriver:        notAvailable,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
