package capability

// Data types
const (
	DataQuote              = "quote"
	DataBarsIntraday       = "bars_intraday"
	DataBarsDaily          = "bars_daily"
	DataTechnical          = "technical_indicators"
	DataFundamentals       = "fundamentals"
	DataEarningsCalendar   = "earnings_calendar"
	DataEarningsEstimates  = "earnings_estimates"
	DataAnalystRatings     = "analyst_ratings"
	DataShortInterest      = "short_interest"
	DataNews               = "news"
	DataSocialSentiment    = "social_sentiment"
	DataEconomicIndicators = "economic_indicators"
)

// DefaultFreshness returns the maximum acceptable age per data type, in seconds
func DefaultFreshness() map[string]int {
	return map[string]int{
		DataQuote:              60,
		DataBarsIntraday:       300,
		DataBarsDaily:          86400,
		DataTechnical:          900,
		DataFundamentals:       604800,
		DataEarningsCalendar:   43200,
		DataEarningsEstimates:  21600,
		DataAnalystRatings:     86400,
		DataShortInterest:      259200,
		DataNews:               900,
		DataSocialSentiment:    1800,
		DataEconomicIndicators: 86400,
	}
}

// DefaultProviders returns the data types each provider supplies
// ⭐ SSOT: 제공자별 지원 데이터 유형은 여기서만 정의
func DefaultProviders() map[string][]string {
	return map[string][]string{
		"alpaca":           {DataQuote, DataBarsIntraday, DataBarsDaily, DataNews},
		"alphavantage":     {DataQuote, DataBarsIntraday, DataBarsDaily, DataTechnical, DataFundamentals, DataEarningsCalendar, DataNews, DataEconomicIndicators},
		"benzinga":         {DataNews, DataAnalystRatings, DataEarningsCalendar},
		"earningswhispers": {DataEarningsCalendar, DataEarningsEstimates},
		"eodhd":            {DataQuote, DataBarsDaily, DataFundamentals, DataTechnical, DataEarningsCalendar},
		"finnhub":          {DataQuote, DataBarsIntraday, DataBarsDaily, DataTechnical, DataFundamentals, DataEarningsCalendar, DataEarningsEstimates, DataAnalystRatings, DataNews, DataSocialSentiment},
		"fmp":              {DataQuote, DataBarsDaily, DataFundamentals, DataEarningsCalendar, DataEarningsEstimates, DataAnalystRatings, DataTechnical},
		"fred":             {DataEconomicIndicators},
		"iexcloud":         {DataQuote, DataBarsIntraday, DataBarsDaily, DataFundamentals, DataNews},
		"intrinio":         {DataQuote, DataBarsDaily, DataFundamentals, DataEarningsEstimates},
		"marketstack":      {DataQuote, DataBarsIntraday, DataBarsDaily},
		"nasdaq_data_link": {DataBarsDaily, DataShortInterest, DataEconomicIndicators},
		"newsapi":          {DataNews},
		"polygon":          {DataQuote, DataBarsIntraday, DataBarsDaily, DataTechnical, DataFundamentals, DataNews, DataShortInterest},
		"stocktwits":       {DataSocialSentiment},
		"tiingo":           {DataQuote, DataBarsDaily, DataBarsIntraday, DataNews, DataFundamentals},
		"trading212":       {DataQuote},
		"tradier":          {DataQuote, DataBarsIntraday, DataBarsDaily},
		"twelvedata":       {DataQuote, DataBarsIntraday, DataBarsDaily, DataTechnical, DataEarningsCalendar},
		"yahoo_finance":    {DataQuote, DataBarsDaily, DataFundamentals, DataEarningsCalendar, DataAnalystRatings, DataShortInterest},
	}
}
