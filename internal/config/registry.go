package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"vault-position-lab/internal/domain"
)

//go:embed registry.yaml
var defaultRegistry []byte

// Label is a display symbol and name for a mint.
type Label struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
}

// VaultEntry describes one known vault.
type VaultEntry struct {
	ID                string                      `yaml:"id"`
	Index             uint64                      `yaml:"index"`
	Type              map[string]domain.VaultType `yaml:"type"`
	PreviewDivisorExp int32                       `yaml:"previewDivisorExp"`
}

// StrategyLayout locates the period fields inside the strategy account.
type StrategyLayout struct {
	Account                 string `yaml:"account"`
	DepositPeriodEndsOffset int    `yaml:"depositPeriodEndsOffset"`
	LockPeriodEndsOffset    int    `yaml:"lockPeriodEndsOffset"`
}

// Registry holds identifier-keyed lookup tables. Tests build their own
// instead of relying on the embedded defaults.
type Registry struct {
	Vaults             []VaultEntry     `yaml:"vaults"`
	Tokens             map[string]Label `yaml:"tokens"`
	DefaultTokenLabel  Label            `yaml:"defaultTokenLabel"`
	DefaultShareLabel  Label            `yaml:"defaultShareLabel"`
	DefaultDecimals    int32            `yaml:"defaultDecimals"`
	ReportStepHours    int              `yaml:"reportStepHours"`
	MinimumDeposit     decimal.Decimal  `yaml:"minimumDeposit"`
	MaxPersonalDeposit decimal.Decimal  `yaml:"maxPersonalDeposit"`
	StrategyLayout     StrategyLayout   `yaml:"strategyLayout"`

	byID   map[string]*VaultEntry
	tokens map[string]Label
}

// LoadRegistry parses the registry at path, or the embedded default when
// path is empty.
func LoadRegistry(path string) (*Registry, error) {
	data := defaultRegistry
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read registry %s: %w", path, err)
		}
		data = b
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes a YAML registry document.
func ParseRegistry(data []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if err := r.index(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Registry) index() error {
	if r.ReportStepHours <= 0 {
		r.ReportStepHours = 1
	}
	r.byID = make(map[string]*VaultEntry, len(r.Vaults))
	for i := range r.Vaults {
		v := &r.Vaults[i]
		key := strings.ToLower(v.ID)
		if key == "" {
			return fmt.Errorf("registry vault %d has empty id", i)
		}
		if _, dup := r.byID[key]; dup {
			return fmt.Errorf("registry vault %q listed twice", v.ID)
		}
		for network, t := range v.Type {
			if !t.IsValid() {
				return fmt.Errorf("registry vault %q: invalid type %q for %s", v.ID, t, network)
			}
		}
		r.byID[key] = v
	}
	r.tokens = make(map[string]Label, len(r.Tokens))
	for mint, label := range r.Tokens {
		r.tokens[strings.ToLower(mint)] = label
	}
	return nil
}

// VaultIndex returns the on-chain index used in the vault PDA seeds.
// Unknown identifiers map to index 0.
func (r *Registry) VaultIndex(vaultID string) uint64 {
	if v, ok := r.byID[strings.ToLower(vaultID)]; ok {
		return v.Index
	}
	return 0
}

// VaultType returns the vault variant on network, DEFI when unlisted.
func (r *Registry) VaultType(network domain.Network, vaultID string) domain.VaultType {
	if v, ok := r.byID[strings.ToLower(vaultID)]; ok {
		if t, ok := v.Type[network.String()]; ok {
			return t
		}
	}
	return domain.VaultTypeDeFi
}

// PreviewDivisors returns the vault id → power-of-ten divisor table.
func (r *Registry) PreviewDivisors() map[string]int32 {
	out := make(map[string]int32)
	for _, v := range r.Vaults {
		if v.PreviewDivisorExp > 0 {
			out[v.ID] = v.PreviewDivisorExp
		}
	}
	return out
}

// TokenLabel returns the display label for mint, falling back to the
// default token or share label.
func (r *Registry) TokenLabel(mint string, share bool) Label {
	if l, ok := r.tokens[strings.ToLower(mint)]; ok {
		return l
	}
	if share {
		return r.DefaultShareLabel
	}
	return r.DefaultTokenLabel
}

// VaultIDs lists the registered vault identifiers in document order.
func (r *Registry) VaultIDs() []string {
	ids := make([]string, len(r.Vaults))
	for i, v := range r.Vaults {
		ids[i] = v.ID
	}
	return ids
}
