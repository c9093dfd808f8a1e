package directiveconfig

import (
	"github.com/wonny/tradepress/internal/contracts"
	"github.com/wonny/tradepress/internal/scoring"
)

// Config는 지시자 임계값과 종합 점수 설정 전체
type Config struct {
	TradingMode string                       `yaml:"trading_mode" json:"trading_mode"`
	Directives  map[string]DirectiveSettings `yaml:"directives" json:"directives"`
	Scoring     scoring.Options              `yaml:"scoring" json:"scoring"`
}

// DirectiveSettings overrides one directive. Unset fields keep the
// directive's own defaults.
type DirectiveSettings struct {
	Enabled     *bool              `yaml:"enabled" json:"enabled,omitempty"`
	TradingMode string             `yaml:"trading_mode" json:"trading_mode,omitempty"` // 비어 있으면 전역 모드
	Params      map[string]float64 `yaml:"params" json:"params,omitempty"`
}

// IsEnabled reports whether the directive runs; unset means enabled
func (d DirectiveSettings) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// Default returns the built-in configuration: long mode, every directive
// enabled with its own defaults, default scoring options.
func Default() *Config {
	return &Config{
		TradingMode: string(contracts.TradingModeLong),
		Directives:  map[string]DirectiveSettings{},
		Scoring:     scoring.DefaultOptions(),
	}
}
