package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/wonny/tradepress/internal/contracts"
)

// LoadCandidates decodes candidates from either a bare JSON array or an
// object with a "candidates" array (the rank request body shape).
func LoadCandidates(r io.Reader) ([]contracts.Candidate, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("candidates: empty input")
	}

	if data[0] == '[' {
		var list []contracts.Candidate
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode candidates: %w", err)
		}
		return list, nil
	}

	var wrapped struct {
		Candidates []contracts.Candidate `json:"candidates"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	return wrapped.Candidates, nil
}

// LoadCandidatesFile reads candidates from a JSON file
func LoadCandidatesFile(path string) ([]contracts.Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candidates file: %w", err)
	}
	defer f.Close()

	return LoadCandidates(f)
}
