package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// memoryCacheNote: without Redis each CLI run starts with an empty cache
const memoryCacheNote = "REDIS_ENABLED=false: capability cache is per process, so status and invalidate only see this run"

// capabilitiesCmd queries the provider capability matrix
var capabilitiesCmd = &cobra.Command{
	Use:     "capabilities",
	Aliases: []string{"caps"},
	Short:   "데이터 제공자 capability matrix 조회",
	Long: `데이터 제공자별 지원 데이터 타입과 신선도 요구사항을 조회합니다.

Subcommands:
  matrix                     - 전체 matrix
  status                     - 캐시 상태
  platforms [type]           - 데이터 타입을 제공하는 플랫폼
  supports [platform] [type] - 지원 여부
  freshness [type]           - 신선도 요구사항
  invalidate                 - 캐시 삭제
  refresh                    - 즉시 재구성

Example:
  go run ./cmd/tradepress capabilities platforms short_interest`,
}

var (
	capabilitiesMatrixCmd = &cobra.Command{
		Use:   "matrix",
		Short: "전체 matrix",
		RunE:  showCapabilityMatrix,
	}

	capabilitiesStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "캐시 상태",
		RunE:  showCapabilityStatus,
	}

	capabilitiesPlatformsCmd = &cobra.Command{
		Use:   "platforms [data_type]",
		Short: "데이터 타입 제공 플랫폼",
		Args:  cobra.ExactArgs(1),
		RunE:  showPlatforms,
	}

	capabilitiesSupportsCmd = &cobra.Command{
		Use:   "supports [platform] [data_type]",
		Short: "플랫폼 지원 여부",
		Args:  cobra.ExactArgs(2),
		RunE:  showSupports,
	}

	capabilitiesFreshnessCmd = &cobra.Command{
		Use:   "freshness [data_type]",
		Short: "신선도 요구사항",
		Args:  cobra.ExactArgs(1),
		RunE:  showFreshness,
	}

	capabilitiesInvalidateCmd = &cobra.Command{
		Use:   "invalidate",
		Short: "캐시 삭제",
		RunE:  invalidateCapabilities,
	}

	capabilitiesRefreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "즉시 재구성",
		RunE:  refreshCapabilities,
	}
)

func init() {
	rootCmd.AddCommand(capabilitiesCmd)
	capabilitiesCmd.AddCommand(
		capabilitiesMatrixCmd,
		capabilitiesStatusCmd,
		capabilitiesPlatformsCmd,
		capabilitiesSupportsCmd,
		capabilitiesFreshnessCmd,
		capabilitiesInvalidateCmd,
		capabilitiesRefreshCmd,
	)
}

func showCapabilityMatrix(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{logOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()

	matrix := a.capability.Matrix(cmd.Context())
	out := cmd.OutOrStdout()
	printHeader(out, fmt.Sprintf("Capability matrix · %d platforms · %d data types", len(matrix.Platforms), len(matrix.DataTypes)))

	widths := []int{20, 10, 60}
	printTableHeader(out, []string{"DATA TYPE", "FRESHNESS", "PLATFORMS"}, widths)
	for _, dataType := range sortedKeys(matrix.DataTypes) {
		info := matrix.DataTypes[dataType]
		printTableRow(out, []string{
			dataType,
			(time.Duration(info.FreshnessSeconds) * time.Second).String(),
			strings.Join(info.Platforms, ", "),
		}, widths)
	}
	return nil
}

func showCapabilityStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{logOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()

	status := a.capability.CacheStatus(cmd.Context())
	out := cmd.OutOrStdout()
	printHeader(out, "Capability cache")
	printKeyValue(out, "Cached", fmt.Sprintf("%t", status.Cached), 12)
	printKeyValue(out, "TTL", a.capability.TTL().String(), 12)
	printKeyValue(out, "Store", a.cacheStoreName(), 12)
	if status.Cached {
		printKeyValue(out, "Updated", status.LastUpdated.Format(time.RFC3339), 12)
		printKeyValue(out, "Expires", status.Expires.Format(time.RFC3339), 12)
	}
	if a.memory != nil {
		printWarning(out, memoryCacheNote)
	}
	return nil
}

func showPlatforms(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{logOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()

	platforms := a.capability.PlatformsForDataType(cmd.Context(), args[0])
	out := cmd.OutOrStdout()
	if len(platforms) == 0 {
		printWarning(out, fmt.Sprintf("No platform supplies %s", args[0]))
		return nil
	}
	printList(out, platforms)
	return nil
}

func showSupports(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{logOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()

	supported := a.capability.PlatformSupports(cmd.Context(), args[0], args[1])
	fmt.Fprintf(cmd.OutOrStdout(), "%s supports %s: %t\n", args[0], args[1], supported)
	return nil
}

func showFreshness(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{logOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()

	d := a.capability.FreshnessRequirement(cmd.Context(), args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], d)
	return nil
}

func invalidateCapabilities(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{logOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.capability.Invalidate(cmd.Context()); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printSuccess(out, "Capability cache invalidated")
	if a.memory != nil {
		printWarning(out, memoryCacheNote)
	}
	return nil
}

func refreshCapabilities(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{logOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()

	matrix, err := a.capability.Refresh(cmd.Context())
	if err != nil {
		return err
	}
	printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Capability matrix rebuilt (%d platforms)", len(matrix.Platforms)))
	return nil
}
