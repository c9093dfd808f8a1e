package directives

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradepress/internal/contracts"
)

var f = contracts.Float

func long() contracts.DirectiveConfig {
	return contracts.DirectiveConfig{TradingMode: contracts.TradingModeLong}
}

func withCCI(v float64) contracts.MarketDataSnapshot {
	return contracts.MarketDataSnapshot{Symbol: "TEST", Technical: contracts.TechnicalIndicators{CCI: f(v)}}
}

func withMACD(m, s, h float64) contracts.MarketDataSnapshot {
	return contracts.MarketDataSnapshot{
		Symbol:    "TEST",
		Technical: contracts.TechnicalIndicators{MACD: &contracts.MACD{MACD: m, Signal: s, Histogram: h}},
	}
}

func TestCCI_Fixtures(t *testing.T) {
	d := NewCCIDirective()

	oversold := d.CalculateScore(withCCI(-85.2), long())
	assert.Greater(t, oversold.Score, 50.0)
	assert.InDelta(t, 67.04, oversold.Score, 0.001)
	assert.True(t, oversold.IsBullish(), "signal = %s", oversold.Signal)
	assert.Equal(t, "approaching_oversold", oversold.Condition)
	assert.Equal(t, -85.2, oversold.Values["cci_value"])

	overbought := d.CalculateScore(withCCI(120.5), long())
	assert.Less(t, overbought.Score, 50.0)
	assert.InDelta(t, 19.875, overbought.Score, 0.01)
	assert.True(t, overbought.IsBearish(), "signal = %s", overbought.Signal)
	assert.Equal(t, "overbought", overbought.Condition)
}

func TestCCI_Zones(t *testing.T) {
	d := NewCCIDirective()

	tests := []struct {
		cci       float64
		want      float64
		condition string
	}{
		{-250, 100, "oversold"},
		{-150, 87.5, "oversold"},
		{-100, 75, "oversold"},
		{0, 50, "neutral"},
		{50, 40, "approaching_overbought"},
		{100, 25, "overbought"},
		{300, 0, "overbought"},
	}

	for _, tt := range tests {
		got := d.CalculateScore(withCCI(tt.cci), long())
		assert.InDelta(t, tt.want, got.Score, 0.001, "cci=%v", tt.cci)
		assert.Equal(t, tt.condition, got.Condition, "cci=%v", tt.cci)
	}
}

func TestMACD_Fixtures(t *testing.T) {
	d := NewMACDDirective()

	bull := d.CalculateScore(withMACD(2.5, 1.8, 0.7), long())
	assert.GreaterOrEqual(t, bull.Score, 80.0)
	assert.Equal(t, 100.0, bull.Score)
	assert.True(t, bull.IsBullish())
	assert.Equal(t, "bullish_crossover", bull.Condition)

	bear := d.CalculateScore(withMACD(-1.2, -0.8, -0.4), long())
	assert.Less(t, bear.Score, 50.0)
	assert.InDelta(t, 1.0, bear.Score, 0.001)
	assert.True(t, bear.IsBearish())
	assert.Equal(t, "bearish_crossover", bear.Condition)
}

func TestMACD_HistogramCap(t *testing.T) {
	cfg := contracts.DirectiveConfig{Params: map[string]float64{"crossover_bonus": 0, "zero_line_bonus": 0}}
	got := NewMACDDirective().CalculateScore(withMACD(0, 0, 5), cfg)
	assert.InDelta(t, 60, got.Score, 0.001)
	assert.Equal(t, "converged", got.Condition)
}

func TestRSI(t *testing.T) {
	d := NewRSIDirective()
	snap := func(v float64) contracts.MarketDataSnapshot {
		return contracts.MarketDataSnapshot{Technical: contracts.TechnicalIndicators{RSI: f(v)}}
	}

	tests := []struct {
		rsi       float64
		want      float64
		signal    string
		condition string
	}{
		{25, 75, contracts.SignalBullish, "oversold"},
		{5, 95, contracts.SignalStrongBullish, "oversold"},
		{50, 50, contracts.SignalNeutral, "neutral"},
		{60, 42.5, contracts.SignalNeutral, "neutral"},
		{85, 15, contracts.SignalStrongBearish, "overbought"},
	}

	for _, tt := range tests {
		got := d.CalculateScore(snap(tt.rsi), long())
		assert.InDelta(t, tt.want, got.Score, 0.001, "rsi=%v", tt.rsi)
		assert.Equal(t, tt.signal, got.Signal, "rsi=%v", tt.rsi)
		assert.Equal(t, tt.condition, got.Condition, "rsi=%v", tt.rsi)
	}
}

func TestRSI_CustomThresholds(t *testing.T) {
	cfg := contracts.DirectiveConfig{Params: map[string]float64{"oversold": 40, "overbought": 60}}
	got := NewRSIDirective().CalculateScore(
		contracts.MarketDataSnapshot{Technical: contracts.TechnicalIndicators{RSI: f(35)}}, cfg)

	assert.Equal(t, "oversold", got.Condition)
	assert.Greater(t, got.Score, 70.0)
}

func TestShortModeMirrorsScore(t *testing.T) {
	d := NewRSIDirective()
	snap := contracts.MarketDataSnapshot{Technical: contracts.TechnicalIndicators{RSI: f(25)}}

	longResult := d.CalculateScore(snap, long())
	shortResult := d.CalculateScore(snap, contracts.DirectiveConfig{TradingMode: contracts.TradingModeShort})

	assert.InDelta(t, 100-longResult.Score, shortResult.Score, 0.001)
	assert.Equal(t, longResult.Signal, shortResult.Signal, "signal describes market direction")
	assert.Equal(t, contracts.TradingModeShort, shortResult.TradingMode)
}

func TestADX(t *testing.T) {
	d := NewADXDirective()
	snap := func(adx float64, plus, minus *float64) contracts.MarketDataSnapshot {
		return contracts.MarketDataSnapshot{Technical: contracts.TechnicalIndicators{
			ADX: &contracts.ADX{ADX: adx, PlusDI: plus, MinusDI: minus},
		}}
	}

	weak := d.CalculateScore(snap(15, f(30), f(10)), long())
	assert.Equal(t, 50.0, weak.Score)
	assert.Equal(t, "weak_trend", weak.Condition)

	up := d.CalculateScore(snap(30, f(25), f(10)), long())
	assert.InDelta(t, 82.5, up.Score, 0.001)
	assert.Equal(t, "uptrend", up.Condition)

	down := d.CalculateScore(snap(45, f(10), f(30)), long())
	assert.Equal(t, 0.0, down.Score)
	assert.Equal(t, "strong_downtrend", down.Condition)

	noDir := d.CalculateScore(snap(35, nil, nil), long())
	assert.Equal(t, 50.0, noDir.Score)
	assert.Equal(t, "trend_without_direction", noDir.Condition)
	assert.False(t, noDir.InsufficientData)
}

func TestBollinger(t *testing.T) {
	d := NewBollingerDirective()
	bands := &contracts.BollingerBands{Upper: 110, Middle: 100, Lower: 90}
	snap := func(price float64, b *contracts.BollingerBands) contracts.MarketDataSnapshot {
		return contracts.MarketDataSnapshot{Price: f(price), Technical: contracts.TechnicalIndicators{Bollinger: b}}
	}

	inside := d.CalculateScore(snap(95, bands), long())
	assert.InDelta(t, 70, inside.Score, 0.001)
	assert.Equal(t, "inside_bands", inside.Condition)
	assert.InDelta(t, 0.2, inside.Values["bandwidth"], 0.0001)

	below := d.CalculateScore(snap(88, bands), long())
	assert.InDelta(t, 98, below.Score, 0.001)
	assert.Equal(t, "below_lower_band", below.Condition)

	above := d.CalculateScore(snap(130, bands), long())
	assert.Equal(t, 0.0, above.Score)
	assert.Equal(t, "above_upper_band", above.Condition)

	collapsed := d.CalculateScore(snap(100, &contracts.BollingerBands{Upper: 100, Middle: 100, Lower: 100}), long())
	assert.Equal(t, 50.0, collapsed.Score)
	assert.Equal(t, "collapsed_bands", collapsed.Condition)

	noPrice := d.CalculateScore(contracts.MarketDataSnapshot{Technical: contracts.TechnicalIndicators{Bollinger: bands}}, long())
	assert.True(t, noPrice.InsufficientData)
	assert.Contains(t, noPrice.CalculationDetails, FieldPrice)
}

func TestStochastic(t *testing.T) {
	got := NewStochasticDirective().CalculateScore(contracts.MarketDataSnapshot{
		Technical: contracts.TechnicalIndicators{Stochastic: &contracts.Stochastic{K: 15, D: 10}},
	}, long())

	assert.InDelta(t, 87.5, got.Score, 0.001)
	assert.Equal(t, contracts.SignalStrongBullish, got.Signal)
	assert.Equal(t, "oversold", got.Condition)
}

func TestWilliamsRAndMFI(t *testing.T) {
	wr := NewWilliamsRDirective()
	low := wr.CalculateScore(contracts.MarketDataSnapshot{Technical: contracts.TechnicalIndicators{WilliamsR: f(-90)}}, long())
	assert.InDelta(t, 85, low.Score, 0.001)
	high := wr.CalculateScore(contracts.MarketDataSnapshot{Technical: contracts.TechnicalIndicators{WilliamsR: f(-10)}}, long())
	assert.InDelta(t, 15, high.Score, 0.001)

	mfi := NewMFIDirective().CalculateScore(contracts.MarketDataSnapshot{Technical: contracts.TechnicalIndicators{MFI: f(85)}}, long())
	assert.InDelta(t, 22.5, mfi.Score, 0.001)
	assert.Equal(t, contracts.SignalBearish, mfi.Signal)
}

func TestEMA(t *testing.T) {
	d := NewEMADirective()
	snap := func(price, short, lng float64) contracts.MarketDataSnapshot {
		return contracts.MarketDataSnapshot{
			Price:     f(price),
			Technical: contracts.TechnicalIndicators{EMA: &contracts.EMA{Short: short, Long: lng, ShortPeriod: 20, LongPeriod: 50}},
		}
	}

	bull := d.CalculateScore(snap(110, 105, 100), long())
	assert.Equal(t, 100.0, bull.Score)
	assert.Equal(t, "bullish_alignment", bull.Condition)

	bear := d.CalculateScore(snap(90, 95, 100), long())
	assert.Equal(t, 0.0, bear.Score)
	assert.Equal(t, "bearish_alignment", bear.Condition)

	zero := d.CalculateScore(snap(90, 95, 0), long())
	assert.Equal(t, 50.0, zero.Score)
}

func TestVolume(t *testing.T) {
	d := NewVolumeDirective()
	snap := func(vol, avg, change float64) contracts.MarketDataSnapshot {
		return contracts.MarketDataSnapshot{Volume: f(vol), AverageVolume: f(avg), ChangePercent: f(change)}
	}

	surge := d.CalculateScore(snap(2000, 1000, 2), long())
	assert.InDelta(t, 90, surge.Score, 0.001)
	assert.Equal(t, "surge", surge.Condition)

	quiet := d.CalculateScore(snap(500, 1000, -1), long())
	assert.InDelta(t, 45, quiet.Score, 0.001)
	assert.Equal(t, "below_average", quiet.Condition)

	noAvg := d.CalculateScore(snap(500, 0, 1), long())
	assert.Equal(t, 50.0, noAvg.Score)

	missing := d.CalculateScore(contracts.MarketDataSnapshot{Volume: f(10), AverageVolume: f(5)}, long())
	assert.True(t, missing.InsufficientData)
	assert.Contains(t, missing.CalculationDetails, FieldChangePercent)
}

func TestMissingDataPolicy(t *testing.T) {
	empty := contracts.MarketDataSnapshot{Symbol: "EMPTY"}

	for _, e := range NewDefaultRegistry().All() {
		t.Run(e.Code, func(t *testing.T) {
			got := e.Directive.CalculateScore(empty, long())
			assert.Equal(t, NeutralScore, got.Score)
			assert.Equal(t, contracts.SignalInsufficientData, got.Signal)
			assert.True(t, got.InsufficientData)
			assert.Equal(t, e.Code, got.Code)

			err := CheckRequired(e.Directive, empty)
			require.Error(t, err)
			assert.ErrorIs(t, err, contracts.ErrMissingData)
		})
	}
}

func TestNaNTreatedAsMissing(t *testing.T) {
	got := NewRSIDirective().CalculateScore(
		contracts.MarketDataSnapshot{Technical: contracts.TechnicalIndicators{RSI: f(math.NaN())}}, long())
	assert.True(t, got.InsufficientData)

	got = NewMACDDirective().CalculateScore(withMACD(1, math.Inf(1), 0), long())
	assert.True(t, got.InsufficientData)
}

func randomValue(r *rand.Rand) float64 {
	switch r.Intn(6) {
	case 0:
		return 0
	case 1:
		return math.MaxFloat64 * float64(1-2*r.Intn(2))
	case 2:
		return -r.Float64() * 1e6
	default:
		return (r.Float64() - 0.5) * 400
	}
}

func moderateValue(r *rand.Rand) float64 {
	return (r.Float64() - 0.5) * 400
}

func randomSnapshot(r *rand.Rand, gen func(*rand.Rand) float64) contracts.MarketDataSnapshot {
	v := func() float64 { return gen(r) }
	return contracts.MarketDataSnapshot{
		Symbol:        "RND",
		Price:         f(v()),
		ChangePercent: f(v()),
		Volume:        f(v()),
		AverageVolume: f(v()),
		Technical: contracts.TechnicalIndicators{
			RSI:        f(v()),
			CCI:        f(v()),
			MFI:        f(v()),
			WilliamsR:  f(v()),
			MACD:       &contracts.MACD{MACD: v(), Signal: v(), Histogram: v()},
			ADX:        &contracts.ADX{ADX: v(), PlusDI: f(v()), MinusDI: f(v())},
			Bollinger:  &contracts.BollingerBands{Upper: v(), Middle: v(), Lower: v()},
			Stochastic: &contracts.Stochastic{K: v(), D: v()},
			EMA:        &contracts.EMA{Short: v(), Long: v()},
		},
	}
}

func TestScoreBounds(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	reg := NewDefaultRegistry()
	modes := []contracts.DirectiveConfig{long(), {TradingMode: contracts.TradingModeShort}}

	for i := 0; i < 2000; i++ {
		snap := randomSnapshot(r, randomValue)
		for _, cfg := range modes {
			for _, res := range reg.EvaluateAll(snap, nil, cfg) {
				if math.IsNaN(res.Score) || res.Score < 0 || res.Score > 100 {
					t.Fatalf("%s produced out-of-range score %v for %+v", res.Code, res.Score, snap)
				}
			}
		}
	}
}

func TestDeterminism(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	reg := NewDefaultRegistry()

	for i := 0; i < 100; i++ {
		// finite inputs only: NaN in Values would defeat equality
		snap := randomSnapshot(r, moderateValue)
		first := reg.EvaluateAll(snap, nil, long())
		second := reg.EvaluateAll(snap, nil, long())
		require.Equal(t, first, second)

		a, err := json.Marshal(first)
		require.NoError(t, err)
		b, err := json.Marshal(second)
		require.NoError(t, err)
		require.Equal(t, a, b)
	}
}

func TestClampAndSignal(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-5))
	assert.Equal(t, 100.0, Clamp(250))
	assert.Equal(t, 50.0, Clamp(math.NaN()))
	assert.Equal(t, 100.0, Clamp(math.Inf(1)))

	assert.Equal(t, contracts.SignalStrongBullish, SignalFromScore(80))
	assert.Equal(t, contracts.SignalBullish, SignalFromScore(60))
	assert.Equal(t, contracts.SignalNeutral, SignalFromScore(50))
	assert.Equal(t, contracts.SignalBearish, SignalFromScore(40))
	assert.Equal(t, contracts.SignalStrongBearish, SignalFromScore(20))
}

func TestDefaultConfigIsCopy(t *testing.T) {
	d := NewRSIDirective()
	cfg := d.DefaultConfig()
	cfg.Params["oversold"] = 1

	assert.Equal(t, 30.0, d.DefaultConfig().Params["oversold"])
}

func TestVolume_SurgeRatioBelowOneKeepsDirection(t *testing.T) {
	d := NewVolumeDirective()
	snap := contracts.MarketDataSnapshot{Volume: f(2000), AverageVolume: f(1000), ChangePercent: f(2)}
	cfg := contracts.DirectiveConfig{Params: map[string]float64{"surge_ratio": 0.5}}

	res := d.CalculateScore(snap, cfg)

	// rising price on heavy volume stays bullish; out-of-range params fall back to defaults
	assert.InDelta(t, 90, res.Score, 0.001)
	assert.Equal(t, "surge", res.Condition)
	assert.Contains(t, res.CalculationDetails, "surge_ratio")
}

func TestValidateConfig(t *testing.T) {
	for _, e := range NewDefaultRegistry().All() {
		assert.NoError(t, ValidateConfig(e.Directive, long()), "defaults of %s", e.Code)
	}

	tests := []struct {
		name   string
		d      Directive
		params map[string]float64
		param  string
	}{
		{"volume surge below one", NewVolumeDirective(), map[string]float64{"surge_ratio": 0.5}, "surge_ratio"},
		{"volume surge of one", NewVolumeDirective(), map[string]float64{"surge_ratio": 1}, "surge_ratio"},
		{"rsi thresholds crossed", NewRSIDirective(), map[string]float64{"oversold": 80, "overbought": 70}, "oversold"},
		{"rsi off scale", NewRSIDirective(), map[string]float64{"overbought": 120}, "overbought"},
		{"williams positive", NewWilliamsRDirective(), map[string]float64{"overbought": 10}, "overbought"},
		{"cci zero range", NewCCIDirective(), map[string]float64{"extreme_range": 0}, "extreme_range"},
		{"cci positive oversold", NewCCIDirective(), map[string]float64{"oversold": 10}, "oversold"},
		{"macd negative bonus", NewMACDDirective(), map[string]float64{"crossover_bonus": -5}, "crossover_bonus"},
		{"adx trend order", NewADXDirective(), map[string]float64{"weak_trend": 50}, "weak_trend"},
		{"bollinger wide near band", NewBollingerDirective(), map[string]float64{"near_band": 0.8}, "near_band"},
		{"ema zero scale", NewEMADirective(), map[string]float64{"distance_scale": 0}, "distance_scale"},
		{"non-finite", NewStochasticDirective(), map[string]float64{"cross_bonus": math.Inf(1)}, "cross_bonus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.d, contracts.DirectiveConfig{Params: tt.params})
			require.Error(t, err)
			assert.ErrorIs(t, err, contracts.ErrInvalidParam)

			var perr *contracts.InvalidParamError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.param, perr.Param)
			assert.Equal(t, tt.d.Code(), perr.Directive)
		})
	}
}
