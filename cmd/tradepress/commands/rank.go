package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tradepress/internal/scoring"
)

// rankCmd ranks earnings candidates
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "어닝 후보 종합 점수 랭킹",
	Long: `후보 목록(JSON 배열 또는 {"candidates": [...]})을 종합 점수로 정렬합니다.

Example:
  go run ./cmd/tradepress rank --input candidates.json
  go run ./cmd/tradepress rank --input candidates.json --limit 10 --save`,
	RunE: runRank,
}

var (
	rankInput string
	rankLimit int
	rankJSON  bool
	rankSave  bool
)

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringVarP(&rankInput, "input", "i", "", "candidates JSON file (default: $CANDIDATES_FILE, - for stdin)")
	rankCmd.Flags().IntVarP(&rankLimit, "limit", "n", 20, "number of results to print (0 = all)")
	rankCmd.Flags().BoolVar(&rankJSON, "json", false, "print results as JSON")
	rankCmd.Flags().BoolVar(&rankSave, "save", false, "store the ranking (requires DATABASE_URL)")
}

func runRank(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{logOut: cmd.ErrOrStderr(), database: rankSave})
	if err != nil {
		return err
	}
	defer a.Close()

	path := rankInput
	if path == "" {
		path = a.cfg.Scoring.CandidatesFile
	}

	in, err := openInput(path, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer in.Close()

	candidates, err := scoring.LoadCandidates(in)
	if err != nil {
		return err
	}

	start := time.Now()
	results, err := a.scorer.ScoreAndRank(cmd.Context(), candidates)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	var runID string
	if rankSave {
		if a.repo == nil {
			return fmt.Errorf("--save requires DATABASE_URL")
		}
		runID, err = a.repo.SaveRanking(cmd.Context(), results)
		if err != nil {
			return err
		}
	}

	if rankLimit > 0 && len(results) > rankLimit {
		results = results[:rankLimit]
	}

	if rankJSON {
		return printJSON(out, results)
	}

	printHeader(out, fmt.Sprintf("Earnings whisper ranking · %d candidates", len(candidates)))

	widths := []int{4, 8, 7, 11, 7, 40}
	printTableHeader(out, []string{"#", "SYMBOL", "SCORE", "REC", "CONF", "RISKS"}, widths)
	for _, r := range results {
		printTableRow(out, []string{
			fmt.Sprintf("%d", r.Rank),
			r.Symbol,
			formatScore(r.TotalScore),
			r.Recommendation,
			r.ConfidenceLevel,
			strings.Join(r.RiskFactors, "; "),
		}, widths)
	}

	printSeparator(out)
	if runID != "" {
		printSuccess(out, fmt.Sprintf("Saved run %s", runID))
	}
	printSuccess(out, fmt.Sprintf("Ranked in %s", time.Since(start).Round(time.Millisecond)))
	return nil
}
