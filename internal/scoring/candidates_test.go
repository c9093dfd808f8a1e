package scoring

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradepress/internal/contracts"
)

func TestLoadCandidates(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"array", `[{"symbol":"AAA","beat_rate":0.75},{"symbol":"BBB"}]`, 2, false},
		{"wrapped", `{"candidates":[{"symbol":"AAA","guidance":"raised"}]}`, 1, false},
		{"empty array", `[]`, 0, false},
		{"blank", "  \n", 0, true},
		{"garbage", `{"candidates":`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadCandidates(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestLoadCandidatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`[{"symbol":"AAA","beat_rate":0.75,"guidance":"raised","technical":{"symbol":"AAA","technical":{"rsi":28}}}]`), 0o644))

	got, err := LoadCandidatesFile(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, contracts.GuidanceRaised, got[0].Guidance)
	require.NotNil(t, got[0].BeatRate)
	assert.Equal(t, 0.75, *got[0].BeatRate)
	require.NotNil(t, got[0].Technical)
	assert.Equal(t, 28.0, *got[0].Technical.Technical.RSI)

	_, err = LoadCandidatesFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
