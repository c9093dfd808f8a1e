package capability

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/tradepress/internal/contracts"
)

// Build constructs the matrix from a provider table and freshness table.
// Every provider's data types must appear in freshness with a positive age.
func Build(providers map[string][]string, freshness map[string]int, now time.Time) (*contracts.CapabilityMatrix, error) {
	if len(providers) == 0 {
		return nil, &contracts.MatrixBuildError{Reason: "provider table is empty"}
	}

	for dataType, seconds := range freshness {
		if seconds <= 0 {
			return nil, &contracts.MatrixBuildError{Reason: fmt.Sprintf("data type %s: freshness must be positive", dataType)}
		}
	}

	m := &contracts.CapabilityMatrix{
		Platforms: make(map[string][]string, len(providers)),
		DataTypes: make(map[string]contracts.DataTypeInfo, len(freshness)),
		BuiltAt:   now,
	}
	for dataType, seconds := range freshness {
		m.DataTypes[dataType] = contracts.DataTypeInfo{FreshnessSeconds: seconds, Platforms: []string{}}
	}

	for provider, types := range providers {
		if provider == "" {
			return nil, &contracts.MatrixBuildError{Reason: "empty provider name"}
		}

		seen := make(map[string]bool, len(types))
		supported := make([]string, 0, len(types))
		for _, dataType := range types {
			info, ok := m.DataTypes[dataType]
			if !ok {
				return nil, &contracts.MatrixBuildError{Reason: fmt.Sprintf("provider %s: unknown data type %s", provider, dataType)}
			}
			if seen[dataType] {
				continue
			}
			seen[dataType] = true

			supported = append(supported, dataType)
			info.Platforms = append(info.Platforms, provider)
			m.DataTypes[dataType] = info
		}

		sort.Strings(supported)
		m.Platforms[provider] = supported
	}

	for dataType, info := range m.DataTypes {
		sort.Strings(info.Platforms)
		m.DataTypes[dataType] = info
	}

	return m, nil
}

func emptyMatrix(now time.Time) *contracts.CapabilityMatrix {
	return &contracts.CapabilityMatrix{
		Platforms: map[string][]string{},
		DataTypes: map[string]contracts.DataTypeInfo{},
		BuiltAt:   now,
	}
}
