package contracts

import "time"

// DataTypeInfo describes one data type in the capability matrix
type DataTypeInfo struct {
	FreshnessSeconds int      `json:"freshness_seconds"`
	Platforms        []string `json:"platforms"`
}

// CapabilityMatrix maps providers to data types and back
type CapabilityMatrix struct {
	Platforms map[string][]string     `json:"platforms"`  // provider → data types
	DataTypes map[string]DataTypeInfo `json:"data_types"` // data type → info
	BuiltAt   time.Time               `json:"built_at"`
}

// IsEmpty reports whether the matrix carries no capabilities
func (m *CapabilityMatrix) IsEmpty() bool {
	return m == nil || len(m.Platforms) == 0
}

// CacheStatus describes the cached capability matrix
type CacheStatus struct {
	Cached      bool      `json:"cached"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
	Expires     time.Time `json:"expires,omitempty"`
}
