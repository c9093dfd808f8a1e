package directiveconfig

import (
	"fmt"
	"math"

	"github.com/wonny/tradepress/internal/contracts"
	"github.com/wonny/tradepress/internal/directives"
	"github.com/wonny/tradepress/internal/scoring"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all structural constraints. Directive codes are checked
// against a registry by Resolve.
func Validate(cfg *Config) error {
	// === Trading mode ===
	if _, err := contracts.ParseTradingMode(cfg.TradingMode); err != nil {
		return ValidationError{"trading_mode", err.Error()}
	}

	// === Directives ===
	for code, d := range cfg.Directives {
		if _, err := contracts.ParseTradingMode(d.TradingMode); err != nil {
			return ValidationError{"directives." + code + ".trading_mode", err.Error()}
		}
		for key, v := range d.Params {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return ValidationError{"directives." + code + ".params." + key, "must be a finite number"}
			}
		}
	}

	// === Scoring ===
	weights := cfg.Scoring.Weights.ByComponent()
	for _, name := range scoring.Components {
		if w := weights[name]; w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return ValidationError{"scoring.weights." + name, "must be >= 0"}
		}
	}
	if cfg.Scoring.Weights.Sum() <= 0 {
		return ValidationError{"scoring.weights", "sum must be > 0"}
	}
	if cfg.Scoring.Weights.Technical > 0 && len(cfg.Scoring.TechnicalDirectives) == 0 {
		return ValidationError{"scoring.technical_directives", "required when the technical weight is > 0"}
	}
	if err := cfg.Scoring.Bands.Validate(); err != nil {
		return ValidationError{"scoring.bands", err.Error()}
	}

	risk := cfg.Scoring.Risk
	if risk.ShortInterestChangePct < 0 || risk.ImpliedMovePct < 0 {
		return ValidationError{"scoring.risk", "thresholds must be >= 0"}
	}
	if risk.MinBeatRate < 0 || risk.MinBeatRate > 1 {
		return ValidationError{"scoring.risk.min_beat_rate", "must be in [0, 1]"}
	}

	return nil
}

// Resolved is a validated config bound to a registry
type Resolved struct {
	TradingMode contracts.TradingMode
	// Fallback applies to directives without an override
	Fallback  contracts.DirectiveConfig
	Overrides map[string]contracts.DirectiveConfig
	// Enabled lists enabled directive codes in registry order
	Enabled []string
	Scoring scoring.Options
}

// Config returns the evaluation config for code
func (r *Resolved) Config(code string) contracts.DirectiveConfig {
	if cfg, ok := r.Overrides[code]; ok {
		return cfg
	}
	return r.Fallback
}

// IsEnabled reports whether code is enabled
func (r *Resolved) IsEnabled(code string) bool {
	for _, c := range r.Enabled {
		if c == code {
			return true
		}
	}
	return false
}

// Resolve binds cfg to registry. Unknown directive codes in either the
// directives section or scoring.technical_directives are returned as
// errors matching contracts.ErrUnknownDirective.
func (cfg *Config) Resolve(registry *directives.Registry) (*Resolved, error) {
	mode, err := contracts.ParseTradingMode(cfg.TradingMode)
	if err != nil {
		return nil, ValidationError{"trading_mode", err.Error()}
	}

	overrides := make(map[string]contracts.DirectiveConfig, len(cfg.Directives))
	disabled := make(map[string]bool)

	for code, settings := range cfg.Directives {
		d, err := registry.Get(code)
		if err != nil {
			return nil, fmt.Errorf("directives.%s: %w", code, err)
		}

		dmode := mode
		if settings.TradingMode != "" {
			dmode = contracts.TradingMode(settings.TradingMode)
		}
		override := contracts.DirectiveConfig{TradingMode: dmode, Params: copyParams(settings.Params)}
		if err := directives.ValidateConfig(d, override); err != nil {
			return nil, fmt.Errorf("directives.%s.params: %w", code, err)
		}
		overrides[d.Code()] = override

		if !settings.IsEnabled() {
			disabled[d.Code()] = true
		}
	}

	for _, code := range cfg.Scoring.TechnicalDirectives {
		if !registry.Has(code) {
			return nil, fmt.Errorf("scoring.technical_directives: %w", &contracts.UnknownDirectiveError{Code: code})
		}
	}

	enabled := make([]string, 0, registry.Len())
	for _, code := range registry.Codes() {
		if !disabled[code] {
			enabled = append(enabled, code)
		}
	}

	return &Resolved{
		TradingMode: mode,
		Fallback:    contracts.DirectiveConfig{TradingMode: mode},
		Overrides:   overrides,
		Enabled:     enabled,
		Scoring:     cfg.Scoring,
	}, nil
}

func copyParams(in map[string]float64) map[string]float64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
