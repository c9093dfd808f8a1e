package directives

import (
	"fmt"
	"math"

	"github.com/wonny/tradepress/internal/contracts"
)

// paramCheck inspects merged params; it returns the offending key and why
type paramCheck func(p contracts.DirectiveConfig) (key, reason string)

// paramChecker is implemented by directives that constrain their params
type paramChecker interface {
	paramChecks() []paramCheck
}

func (m meta) paramChecks() []paramCheck { return m.checks }

// ValidateConfig merges cfg over the directive defaults and checks every
// param is finite and inside the directive's range. Errors match
// contracts.ErrInvalidParam.
func ValidateConfig(d Directive, cfg contracts.DirectiveConfig) error {
	merged := cfg.Merge(d.DefaultConfig())

	for _, key := range merged.ParamKeys() {
		if v := merged.Params[key]; math.IsNaN(v) || math.IsInf(v, 0) {
			return &contracts.InvalidParamError{Directive: d.Code(), Param: key, Reason: "must be a finite number"}
		}
	}

	c, ok := d.(paramChecker)
	if !ok {
		return nil
	}
	for _, check := range c.paramChecks() {
		if key, reason := check(merged); key != "" {
			return &contracts.InvalidParamError{Directive: d.Code(), Param: key, Reason: reason}
		}
	}
	return nil
}

func atLeast(key string, min float64) paramCheck {
	return func(p contracts.DirectiveConfig) (string, string) {
		if p.Params[key] < min {
			return key, fmt.Sprintf("must be >= %g", min)
		}
		return "", ""
	}
}

func greaterThan(key string, min float64) paramCheck {
	return func(p contracts.DirectiveConfig) (string, string) {
		if p.Params[key] <= min {
			return key, fmt.Sprintf("must be > %g", min)
		}
		return "", ""
	}
}

func lessThan(key string, max float64) paramCheck {
	return func(p contracts.DirectiveConfig) (string, string) {
		if p.Params[key] >= max {
			return key, fmt.Sprintf("must be < %g", max)
		}
		return "", ""
	}
}

func within(key string, lo, hi float64) paramCheck {
	return func(p contracts.DirectiveConfig) (string, string) {
		if v := p.Params[key]; v < lo || v > hi {
			return key, fmt.Sprintf("must be in [%g, %g]", lo, hi)
		}
		return "", ""
	}
}

// ordered requires low < high
func ordered(low, high string) paramCheck {
	return func(p contracts.DirectiveConfig) (string, string) {
		if p.Params[low] >= p.Params[high] {
			return low, "must be below " + high
		}
		return "", ""
	}
}

// nonNegative applies atLeast(key, 0) to each key
func nonNegative(keys ...string) []paramCheck {
	checks := make([]paramCheck, 0, len(keys))
	for _, key := range keys {
		checks = append(checks, atLeast(key, 0))
	}
	return checks
}

// oscillatorChecks bounds oversold/overbought to the oscillator scale
func oscillatorChecks(lo, hi float64) []paramCheck {
	return []paramCheck{
		within("oversold", lo, hi),
		within("overbought", lo, hi),
		ordered("oversold", "overbought"),
	}
}
