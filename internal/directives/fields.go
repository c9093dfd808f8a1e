package directives

import "github.com/wonny/tradepress/internal/contracts"

// Snapshot field paths
const (
	FieldPrice         = "price"
	FieldChangePercent = "change_percent"
	FieldVolume        = "volume"
	FieldAverageVolume = "average_volume"
	FieldRSI           = "technical.rsi"
	FieldCCI           = "technical.cci"
	FieldMFI           = "technical.mfi"
	FieldWilliamsR     = "technical.williams_r"
	FieldMACD          = "technical.macd"
	FieldADX           = "technical.adx"
	FieldBollinger     = "technical.bollinger"
	FieldStochastic    = "technical.stochastic"
	FieldEMA           = "technical.ema"
)

var fieldPresent = map[string]func(contracts.MarketDataSnapshot) bool{
	FieldPrice:         func(s contracts.MarketDataSnapshot) bool { return contracts.Finite(s.Price) },
	FieldChangePercent: func(s contracts.MarketDataSnapshot) bool { return contracts.Finite(s.ChangePercent) },
	FieldVolume:        func(s contracts.MarketDataSnapshot) bool { return contracts.Finite(s.Volume) },
	FieldAverageVolume: func(s contracts.MarketDataSnapshot) bool { return contracts.Finite(s.AverageVolume) },
	FieldRSI:           func(s contracts.MarketDataSnapshot) bool { return contracts.Finite(s.Technical.RSI) },
	FieldCCI:           func(s contracts.MarketDataSnapshot) bool { return contracts.Finite(s.Technical.CCI) },
	FieldMFI:           func(s contracts.MarketDataSnapshot) bool { return contracts.Finite(s.Technical.MFI) },
	FieldWilliamsR:     func(s contracts.MarketDataSnapshot) bool { return contracts.Finite(s.Technical.WilliamsR) },
	FieldMACD: func(s contracts.MarketDataSnapshot) bool {
		m := s.Technical.MACD
		return m != nil && contracts.AllFinite(m.MACD, m.Signal, m.Histogram)
	},
	FieldADX: func(s contracts.MarketDataSnapshot) bool {
		a := s.Technical.ADX
		return a != nil && contracts.AllFinite(a.ADX)
	},
	FieldBollinger: func(s contracts.MarketDataSnapshot) bool {
		b := s.Technical.Bollinger
		return b != nil && contracts.AllFinite(b.Upper, b.Middle, b.Lower)
	},
	FieldStochastic: func(s contracts.MarketDataSnapshot) bool {
		st := s.Technical.Stochastic
		return st != nil && contracts.AllFinite(st.K, st.D)
	},
	FieldEMA: func(s contracts.MarketDataSnapshot) bool {
		e := s.Technical.EMA
		return e != nil && contracts.AllFinite(e.Short, e.Long)
	},
}

// firstMissing returns the first field absent from data, or "".
// Unknown paths count as missing.
func firstMissing(data contracts.MarketDataSnapshot, fields []string) string {
	for _, f := range fields {
		check, ok := fieldPresent[f]
		if !ok || !check(data) {
			return f
		}
	}
	return ""
}
