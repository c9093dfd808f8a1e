package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// directivesCmd lists registered directives
var directivesCmd = &cobra.Command{
	Use:   "directives",
	Short: "등록된 지시자 목록",
	Long: `등록된 지시자와 현재 설정(trading mode, enabled, 파라미터)을 출력합니다.

Example:
  go run ./cmd/tradepress directives
  go run ./cmd/tradepress directives show cci`,
	RunE: listDirectives,
}

var directivesShowCmd = &cobra.Command{
	Use:   "show [code]",
	Short: "지시자 상세",
	Args:  cobra.ExactArgs(1),
	RunE:  showDirective,
}

func init() {
	rootCmd.AddCommand(directivesCmd)
	directivesCmd.AddCommand(directivesShowCmd)
}

func listDirectives(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{logOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	printHeader(out, fmt.Sprintf("Directives (%d) · mode %s", a.registry.Len(), a.resolved.TradingMode))

	widths := []int{12, 28, 8, 30}
	printTableHeader(out, []string{"CODE", "NAME", "ENABLED", "REQUIRES"}, widths)
	for _, e := range a.registry.All() {
		enabled := "no"
		if a.resolved.IsEnabled(e.Code) {
			enabled = "yes"
		}
		printTableRow(out, []string{e.Code, e.Directive.Name(), enabled, strings.Join(e.Directive.RequiredFields(), ", ")}, widths)
	}
	return nil
}

func showDirective(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{logOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := a.registry.Get(args[0])
	if err != nil {
		return err
	}

	cfg := a.resolved.Config(d.Code()).Merge(d.DefaultConfig())

	out := cmd.OutOrStdout()
	printHeader(out, d.Name())
	printKeyValue(out, "Code", d.Code(), 12)
	printKeyValue(out, "Description", d.Description(), 12)
	printKeyValue(out, "Mode", string(cfg.Mode()), 12)
	printKeyValue(out, "Enabled", fmt.Sprintf("%t", a.resolved.IsEnabled(d.Code())), 12)
	printKeyValue(out, "Requires", strings.Join(d.RequiredFields(), ", "), 12)

	fmt.Fprintln(out, "   Params:")
	items := make([]string, 0, len(cfg.Params))
	for _, k := range cfg.ParamKeys() {
		items = append(items, fmt.Sprintf("%s = %g", k, cfg.Params[k]))
	}
	printList(out, items)
	return nil
}
