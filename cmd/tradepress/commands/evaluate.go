package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/tradepress/internal/contracts"
)

// evaluateCmd runs directives against a snapshot
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [code]",
	Short: "스냅샷에 지시자 적용",
	Long: `MarketDataSnapshot JSON에 지시자를 적용합니다.
code를 생략하면 활성화된 모든 지시자를 실행합니다.

Example:
  go run ./cmd/tradepress evaluate cci --input snapshot.json
  go run ./cmd/tradepress snapshot --input bars.json | go run ./cmd/tradepress evaluate --mode short`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvaluate,
}

var (
	evaluateInput string
	evaluateMode  string
	evaluateJSON  bool
	evaluateSave  bool
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateInput, "input", "i", "-", "snapshot JSON file (- for stdin)")
	evaluateCmd.Flags().StringVar(&evaluateMode, "mode", "", "trading mode override (long|short)")
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "print results as JSON")
	evaluateCmd.Flags().BoolVar(&evaluateSave, "save", false, "store results (requires DATABASE_URL)")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	mode := contracts.TradingMode("")
	if evaluateMode != "" {
		m, err := contracts.ParseTradingMode(evaluateMode)
		if err != nil {
			return err
		}
		mode = m
	}

	in, err := openInput(evaluateInput, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer in.Close()

	var snapshot contracts.MarketDataSnapshot
	if err := json.NewDecoder(in).Decode(&snapshot); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	a, err := newApp(cmd.Context(), appOptions{logOut: cmd.ErrOrStderr(), database: evaluateSave})
	if err != nil {
		return err
	}
	defer a.Close()

	codes := a.resolved.Enabled
	if len(args) == 1 {
		d, err := a.registry.Get(args[0])
		if err != nil {
			return err
		}
		codes = []string{d.Code()}
	}

	results := make([]contracts.DirectiveResult, 0, len(codes))
	for _, code := range codes {
		cfg := contracts.DirectiveConfig{TradingMode: mode}.Merge(a.resolved.Config(code))
		result, err := a.registry.Evaluate(code, snapshot, cfg)
		if err != nil {
			return err
		}
		a.metrics.RecordDirective(result)
		results = append(results, result)
	}

	if evaluateSave {
		if a.repo == nil {
			return fmt.Errorf("--save requires DATABASE_URL")
		}
		if snapshot.Symbol == "" {
			return fmt.Errorf("--save requires a snapshot symbol")
		}
		for _, r := range results {
			if err := a.repo.SaveDirectiveResult(cmd.Context(), snapshot.Symbol, r); err != nil {
				return err
			}
		}
	}

	out := cmd.OutOrStdout()
	if evaluateJSON {
		return printJSON(out, results)
	}

	title := "Directive evaluation"
	if snapshot.Symbol != "" {
		title += " · " + snapshot.Symbol
	}
	printHeader(out, title)

	widths := []int{12, 7, 18, 22}
	printTableHeader(out, []string{"CODE", "SCORE", "SIGNAL", "CONDITION"}, widths)
	for _, r := range results {
		printTableRow(out, []string{r.Code, formatScore(r.Score), r.Signal, r.Condition}, widths)
	}
	return nil
}
