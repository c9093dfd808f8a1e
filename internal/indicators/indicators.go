// Package indicators derives a MarketDataSnapshot from OHLCV history.
package indicators

import (
	"fmt"
	"math"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/wonny/tradepress/internal/contracts"
)

// Bar is one OHLCV candle
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Periods configures indicator lookbacks
type Periods struct {
	RSI          int     `json:"rsi"`
	CCI          int     `json:"cci"`
	MACDFast     int     `json:"macd_fast"`
	MACDSlow     int     `json:"macd_slow"`
	MACDSignal   int     `json:"macd_signal"`
	ADX          int     `json:"adx"`
	Bollinger    int     `json:"bollinger"`
	BollingerDev float64 `json:"bollinger_dev"`
	StochK       int     `json:"stoch_k"`
	StochSlowK   int     `json:"stoch_slow_k"`
	StochD       int     `json:"stoch_d"`
	MFI          int     `json:"mfi"`
	WilliamsR    int     `json:"williams_r"`
	EMAShort     int     `json:"ema_short"`
	EMALong      int     `json:"ema_long"`
	Volume       int     `json:"volume"` // average volume window
}

// DefaultPeriods returns the conventional lookbacks
func DefaultPeriods() Periods {
	return Periods{
		RSI:          14,
		CCI:          20,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		ADX:          14,
		Bollinger:    20,
		BollingerDev: 2,
		StochK:       14,
		StochSlowK:   3,
		StochD:       3,
		MFI:          14,
		WilliamsR:    14,
		EMAShort:     20,
		EMALong:      50,
		Volume:       20,
	}
}

// Validate rejects non-positive periods and a fast MACD/EMA not shorter than the slow one
func (p Periods) Validate() error {
	periods := []struct {
		name  string
		value int
	}{
		{"rsi", p.RSI}, {"cci", p.CCI}, {"macd_fast", p.MACDFast}, {"macd_slow", p.MACDSlow},
		{"macd_signal", p.MACDSignal}, {"adx", p.ADX}, {"bollinger", p.Bollinger},
		{"stoch_k", p.StochK}, {"stoch_slow_k", p.StochSlowK}, {"stoch_d", p.StochD},
		{"mfi", p.MFI}, {"williams_r", p.WilliamsR}, {"ema_short", p.EMAShort},
		{"ema_long", p.EMALong}, {"volume", p.Volume},
	}
	for _, period := range periods {
		if period.value < 1 {
			return fmt.Errorf("period %s must be >= 1, got %d", period.name, period.value)
		}
	}
	if p.MACDFast >= p.MACDSlow {
		return fmt.Errorf("macd_fast must be shorter than macd_slow")
	}
	if p.EMAShort >= p.EMALong {
		return fmt.Errorf("ema_short must be shorter than ema_long")
	}
	if p.BollingerDev <= 0 {
		return fmt.Errorf("bollinger_dev must be positive")
	}
	return nil
}

// ValidateBars rejects non-finite values and bars out of time order
func ValidateBars(bars []Bar) error {
	for i, b := range bars {
		if !contracts.AllFinite(b.Open, b.High, b.Low, b.Close, b.Volume) {
			return fmt.Errorf("bar %d: non-finite value", i)
		}
		if b.High < b.Low {
			return fmt.Errorf("bar %d: high %.4f below low %.4f", i, b.High, b.Low)
		}
		if i > 0 && !b.Time.IsZero() && b.Time.Before(bars[i-1].Time) {
			return fmt.Errorf("bar %d: out of time order", i)
		}
	}
	return nil
}

// Compute derives a snapshot from bars (oldest first). Indicators whose
// lookback exceeds the history are left nil so directives report
// insufficient data.
func Compute(symbol string, bars []Bar, p Periods) (contracts.MarketDataSnapshot, error) {
	snap := contracts.MarketDataSnapshot{Symbol: symbol}

	if err := p.Validate(); err != nil {
		return snap, err
	}
	if err := ValidateBars(bars); err != nil {
		return snap, err
	}

	n := len(bars)
	if n == 0 {
		return snap, nil
	}

	high, low, closes, volume := split(bars)
	last := bars[n-1]
	snap.AsOf = last.Time
	snap.Price = contracts.Float(last.Close)
	snap.Volume = contracts.Float(last.Volume)

	if n >= 2 && bars[n-2].Close != 0 {
		prev := bars[n-2].Close
		snap.ChangePercent = contracts.Float((last.Close - prev) / prev * 100)
	}
	if n >= p.Volume {
		snap.AverageVolume = lastOf(talib.Sma(volume, p.Volume))
	}

	t := &snap.Technical

	if n > p.RSI {
		t.RSI = lastOf(talib.Rsi(closes, p.RSI))
	}
	if n >= p.CCI {
		t.CCI = lastOf(talib.Cci(high, low, closes, p.CCI))
	}
	if n >= p.MACDSlow+p.MACDSignal-1 {
		macd, signal, hist := talib.Macd(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
		if m, s, h := lastOf(macd), lastOf(signal), lastOf(hist); m != nil && s != nil && h != nil {
			t.MACD = &contracts.MACD{MACD: *m, Signal: *s, Histogram: *h}
		}
	}
	if n >= 2*p.ADX {
		if adx := lastOf(talib.Adx(high, low, closes, p.ADX)); adx != nil {
			t.ADX = &contracts.ADX{
				ADX:     *adx,
				PlusDI:  lastOf(talib.PlusDI(high, low, closes, p.ADX)),
				MinusDI: lastOf(talib.MinusDI(high, low, closes, p.ADX)),
			}
		}
	}
	if n >= p.Bollinger {
		upper, middle, lower := talib.BBands(closes, p.Bollinger, p.BollingerDev, p.BollingerDev, talib.SMA)
		if u, m, l := lastOf(upper), lastOf(middle), lastOf(lower); u != nil && m != nil && l != nil {
			t.Bollinger = &contracts.BollingerBands{Upper: *u, Middle: *m, Lower: *l}
		}
	}
	if n >= p.StochK+p.StochSlowK+p.StochD-2 {
		k, d := talib.Stoch(high, low, closes, p.StochK, p.StochSlowK, talib.SMA, p.StochD, talib.SMA)
		if kv, dv := lastOf(k), lastOf(d); kv != nil && dv != nil {
			t.Stochastic = &contracts.Stochastic{K: *kv, D: *dv}
		}
	}
	if n > p.MFI {
		t.MFI = lastOf(talib.Mfi(high, low, closes, volume, p.MFI))
	}
	if n >= p.WilliamsR {
		t.WilliamsR = lastOf(talib.WillR(high, low, closes, p.WilliamsR))
	}
	if n >= p.EMALong {
		short, long := lastOf(talib.Ema(closes, p.EMAShort)), lastOf(talib.Ema(closes, p.EMALong))
		if short != nil && long != nil {
			t.EMA = &contracts.EMA{Short: *short, Long: *long, ShortPeriod: p.EMAShort, LongPeriod: p.EMALong}
		}
	}

	return snap, nil
}

func split(bars []Bar) (high, low, closes, volume []float64) {
	high = make([]float64, len(bars))
	low = make([]float64, len(bars))
	closes = make([]float64, len(bars))
	volume = make([]float64, len(bars))
	for i, b := range bars {
		high[i], low[i], closes[i], volume[i] = b.High, b.Low, b.Close, b.Volume
	}
	return high, low, closes, volume
}

// lastOf returns the final value of a talib output, nil when empty or non-finite
func lastOf(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
