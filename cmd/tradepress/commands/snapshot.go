package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/tradepress/internal/indicators"
)

// snapshotCmd derives a MarketDataSnapshot from OHLCV bars
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "OHLCV 봉 데이터로 지표 스냅샷 생성",
	Long: `OHLCV 봉 JSON 배열에서 RSI, CCI, MACD, ADX, Bollinger, Stochastic,
MFI, Williams %R, EMA, 평균 거래량을 계산해 MarketDataSnapshot JSON을 출력합니다.
기간이 부족한 지표는 비워 둡니다(지시자는 insufficient data로 처리).

Example:
  go run ./cmd/tradepress snapshot --symbol AAPL --input bars.json > snapshot.json`,
	RunE: runSnapshot,
}

var (
	snapshotInput  string
	snapshotSymbol string
)

func init() {
	rootCmd.AddCommand(snapshotCmd)

	snapshotCmd.Flags().StringVarP(&snapshotInput, "input", "i", "-", "bars JSON file (- for stdin)")
	snapshotCmd.Flags().StringVarP(&snapshotSymbol, "symbol", "s", "", "symbol to stamp on the snapshot")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	in, err := openInput(snapshotInput, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer in.Close()

	var bars []indicators.Bar
	if err := json.NewDecoder(in).Decode(&bars); err != nil {
		return fmt.Errorf("decode bars: %w", err)
	}

	snapshot, err := indicators.Compute(snapshotSymbol, bars, indicators.DefaultPeriods())
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), snapshot)
}
