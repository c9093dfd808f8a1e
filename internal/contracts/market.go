package contracts

import (
	"math"
	"time"
)

// MarketDataSnapshot is the per-symbol input to directives
// ⭐ SSOT: 지시자(directive) 입력 데이터는 이 구조체로만 전달
type MarketDataSnapshot struct {
	Symbol        string              `json:"symbol"`
	Price         *float64            `json:"price,omitempty"`
	ChangePercent *float64            `json:"change_percent,omitempty"`
	Volume        *float64            `json:"volume,omitempty"`
	AverageVolume *float64            `json:"average_volume,omitempty"`
	AsOf          time.Time           `json:"as_of"`
	Technical     TechnicalIndicators `json:"technical"`
}

// TechnicalIndicators holds indicator values; nil means "not provided"
type TechnicalIndicators struct {
	RSI        *float64        `json:"rsi,omitempty"`
	CCI        *float64        `json:"cci,omitempty"`
	MFI        *float64        `json:"mfi,omitempty"`
	WilliamsR  *float64        `json:"williams_r,omitempty"`
	MACD       *MACD           `json:"macd,omitempty"`
	ADX        *ADX            `json:"adx,omitempty"`
	Bollinger  *BollingerBands `json:"bollinger,omitempty"`
	Stochastic *Stochastic     `json:"stochastic,omitempty"`
	EMA        *EMA            `json:"ema,omitempty"`
}

// MACD line, signal line and histogram
type MACD struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// ADX with directional indicators. DI values may be absent.
type ADX struct {
	ADX     float64  `json:"adx"`
	PlusDI  *float64 `json:"plus_di,omitempty"`
	MinusDI *float64 `json:"minus_di,omitempty"`
}

// BollingerBands upper/middle/lower band values
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Stochastic oscillator %K and %D
type Stochastic struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// EMA pair used for trend direction
type EMA struct {
	Short       float64 `json:"short"`
	Long        float64 `json:"long"`
	ShortPeriod int     `json:"short_period"`
	LongPeriod  int     `json:"long_period"`
}

// Float returns a pointer to v, for building snapshots in code
func Float(v float64) *float64 {
	return &v
}

// Finite reports whether p is set and holds a finite number
func Finite(p *float64) bool {
	return p != nil && !math.IsNaN(*p) && !math.IsInf(*p, 0)
}

// AllFinite reports whether every value is a finite number
func AllFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
