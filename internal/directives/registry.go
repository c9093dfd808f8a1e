package directives

import (
	"fmt"
	"strings"
	"sync"

	"github.com/wonny/tradepress/internal/contracts"
)

// Factory builds a directive instance
type Factory func() Directive

// Entry is one registered directive
type Entry struct {
	Code      string
	Directive Directive
}

// Registry maps directive codes to instances. It is populated once by the
// composition root, sealed, and then shared read-only.
// ⭐ SSOT: 지시자 조회는 레지스트리를 통해서만
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Directive
	order   []string
	sealed  bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Directive)}
}

// NewDefaultRegistry registers every built-in directive and seals the registry
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, f := range builtins() {
		d := f()
		if err := r.Register(d.Code(), f); err != nil {
			panic(fmt.Sprintf("directives: built-in registration failed: %v", err))
		}
	}
	r.Seal()
	return r
}

func builtins() []Factory {
	return []Factory{
		NewRSIDirective,
		NewCCIDirective,
		NewMACDDirective,
		NewADXDirective,
		NewBollingerDirective,
		NewStochasticDirective,
		NewMFIDirective,
		NewWilliamsRDirective,
		NewEMADirective,
		NewVolumeDirective,
	}
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Register validates and adds a directive. The factory is invoked once here
// so code mismatches surface at startup rather than at lookup.
func (r *Registry) Register(code string, factory Factory) error {
	code = normalize(code)
	if code == "" {
		return fmt.Errorf("register directive: empty code")
	}
	if factory == nil {
		return fmt.Errorf("register directive %s: nil factory", code)
	}

	d := factory()
	if d == nil {
		return fmt.Errorf("register directive %s: factory returned nil", code)
	}
	if normalize(d.Code()) != code {
		return fmt.Errorf("register directive %s: factory builds %q", code, d.Code())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("register directive %s: registry is sealed", code)
	}
	if _, exists := r.entries[code]; exists {
		return fmt.Errorf("register directive %s: already registered", code)
	}

	r.entries[code] = d
	r.order = append(r.order, code)
	return nil
}

// Seal rejects further registrations
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Get looks up a directive by code
func (r *Registry) Get(code string) (Directive, error) {
	r.mu.RLock()
	d, ok := r.entries[normalize(code)]
	r.mu.RUnlock()

	if !ok {
		return nil, &contracts.UnknownDirectiveError{Code: code}
	}
	return d, nil
}

// Has reports whether code is registered
func (r *Registry) Has(code string) bool {
	_, err := r.Get(code)
	return err == nil
}

// All returns every directive in registration order
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, Entry{Code: code, Directive: r.entries[code]})
	}
	return out
}

// Codes returns registered codes in registration order
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered directives
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Evaluate runs one directive by code
func (r *Registry) Evaluate(code string, data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) (contracts.DirectiveResult, error) {
	d, err := r.Get(code)
	if err != nil {
		return contracts.DirectiveResult{}, err
	}
	return d.CalculateScore(data, cfg), nil
}

// EvaluateAll runs every registered directive in registration order. cfgs
// supplies per-code overrides; fallback applies to codes without one.
func (r *Registry) EvaluateAll(data contracts.MarketDataSnapshot, cfgs map[string]contracts.DirectiveConfig, fallback contracts.DirectiveConfig) []contracts.DirectiveResult {
	entries := r.All()
	results := make([]contracts.DirectiveResult, 0, len(entries))

	for _, e := range entries {
		cfg, ok := cfgs[e.Code]
		if !ok {
			cfg = fallback
		}
		results = append(results, e.Directive.CalculateScore(data, cfg))
	}
	return results
}
