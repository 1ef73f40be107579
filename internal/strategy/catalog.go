package strategy

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Template is one read-only catalog entry users can activate.
type Template struct {
	ID          string             `json:"id" yaml:"id"`
	Name        string             `json:"name" yaml:"name"`
	Creator     string             `json:"creator" yaml:"creator"`
	Allocation  map[string]float64 `json:"allocation" yaml:"allocation"`
	Description string             `json:"description" yaml:"description"`
	RiskLevel   string             `json:"riskLevel" yaml:"risk_level"`
}

// Validate checks that allocation shares are non-negative and sum to 100.
func (t Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("strategy id is required")
	}
	if len(t.Allocation) == 0 {
		return fmt.Errorf("strategy %q has no allocation", t.ID)
	}
	total := 0.0
	for sym, pct := range t.Allocation {
		if pct < 0 {
			return fmt.Errorf("strategy %q: negative allocation for %s", t.ID, sym)
		}
		total += pct
	}
	if math.Abs(total-100) > 0.01 {
		return fmt.Errorf("strategy %q: allocation must sum to 100, got %g", t.ID, total)
	}
	return nil
}

// Catalog is the static, read-only list of strategy templates.
type Catalog struct {
	templates []Template
}

// Default returns the built-in demo catalog.
func Default() *Catalog {
	return &Catalog{templates: []Template{
		{
			ID:      "safestack",
			Name:    "SafeStack",
			Creator: "CryptoSara",
			Allocation: map[string]float64{
				"BTC": 50, "ETH": 30, "USDC": 20,
			},
			Description: "Blue-chip accumulation with a stable buffer.",
			RiskLevel:   "low",
		},
		{
			ID:      "growthmax",
			Name:    "GrowthMax",
			Creator: "MaxYield",
			Allocation: map[string]float64{
				"BTC": 40, "ETH": 30, "SOL": 20, "AVAX": 10,
			},
			Description: "Majors plus high-beta L1 exposure.",
			RiskLevel:   "medium",
		},
		{
			ID:      "degenweekly",
			Name:    "DegenWeekly",
			Creator: "ChainChad",
			Allocation: map[string]float64{
				"SOL": 40, "AVAX": 30, "MATIC": 30,
			},
			Description: "All alt, all the time.",
			RiskLevel:   "high",
		},
		{
			ID:      "stablesaver",
			Name:    "StableSaver",
			Creator: "YieldYoda",
			Allocation: map[string]float64{
				"USDC": 70, "BTC": 20, "ETH": 10,
			},
			Description: "Mostly stables with a small upside sleeve.",
			RiskLevel:   "minimal",
		},
	}}
}

// Load reads a catalog from a YAML file. Every entry must validate.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var templates []Template
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("catalog %s is empty", path)
	}
	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return &Catalog{templates: templates}, nil
}

// Lookup finds a template by id.
func (c *Catalog) Lookup(id string) (Template, bool) {
	for _, t := range c.templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Templates returns all entries in catalog order.
func (c *Catalog) Templates() []Template {
	out := make([]Template, len(c.templates))
	copy(out, c.templates)
	return out
}

// First returns the first entry, the fallback for unmatched voice commands.
func (c *Catalog) First() Template {
	return c.templates[0]
}
