package contracts

import (
	"fmt"
	"sort"
)

// TradingMode selects which side of the market a score rewards
type TradingMode string

const (
	TradingModeLong  TradingMode = "long"
	TradingModeShort TradingMode = "short"
)

// ParseTradingMode validates a trading mode string; empty means long
func ParseTradingMode(s string) (TradingMode, error) {
	switch TradingMode(s) {
	case "", TradingModeLong:
		return TradingModeLong, nil
	case TradingModeShort:
		return TradingModeShort, nil
	default:
		return "", fmt.Errorf("invalid trading mode %q (want long or short)", s)
	}
}

// DirectiveConfig is the per-evaluation threshold set for one directive
type DirectiveConfig struct {
	TradingMode TradingMode        `json:"trading_mode" yaml:"trading_mode"`
	Params      map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// Param returns the named parameter or def when unset
func (c DirectiveConfig) Param(key string, def float64) float64 {
	if v, ok := c.Params[key]; ok {
		return v
	}
	return def
}

// Mode returns the trading mode, defaulting to long
func (c DirectiveConfig) Mode() TradingMode {
	if c.TradingMode == "" {
		return TradingModeLong
	}
	return c.TradingMode
}

// Merge returns a new config with c's values layered over defaults.
// Neither input is modified.
func (c DirectiveConfig) Merge(defaults DirectiveConfig) DirectiveConfig {
	out := DirectiveConfig{
		TradingMode: defaults.TradingMode,
		Params:      make(map[string]float64, len(defaults.Params)+len(c.Params)),
	}
	for k, v := range defaults.Params {
		out.Params[k] = v
	}
	for k, v := range c.Params {
		out.Params[k] = v
	}
	if c.TradingMode != "" {
		out.TradingMode = c.TradingMode
	}
	return out
}

// ParamKeys returns parameter names in sorted order
func (c DirectiveConfig) ParamKeys() []string {
	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Signal labels
const (
	SignalStrongBullish    = "Strong Bullish"
	SignalBullish          = "Bullish"
	SignalNeutral          = "Neutral"
	SignalBearish          = "Bearish"
	SignalStrongBearish    = "Strong Bearish"
	SignalInsufficientData = "Insufficient Data"
)

// DirectiveResult is the output of one directive evaluation
type DirectiveResult struct {
	Code               string             `json:"code"`
	Score              float64            `json:"score"` // 0 ~ 100
	Signal             string             `json:"signal"`
	Condition          string             `json:"condition,omitempty"`
	Values             map[string]float64 `json:"values,omitempty"`
	CalculationDetails string             `json:"calculation_details"`
	TradingMode        TradingMode        `json:"trading_mode"`
	InsufficientData   bool               `json:"insufficient_data"`
}

// IsBullish reports whether the signal points up
func (r DirectiveResult) IsBullish() bool {
	return r.Signal == SignalBullish || r.Signal == SignalStrongBullish
}

// IsBearish reports whether the signal points down
func (r DirectiveResult) IsBearish() bool {
	return r.Signal == SignalBearish || r.Signal == SignalStrongBearish
}
