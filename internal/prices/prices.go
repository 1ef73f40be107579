package prices

// Table maps asset symbols to reference prices in GAS.
type Table map[string]float64

// Defaults returns the built-in demo price table.
func Defaults() Table {
	return Table{
		"BTC":   97000,
		"ETH":   3600,
		"USDC":  1,
		"SOL":   230,
		"AVAX":  45,
		"MATIC": 0.55,
	}
}

// Price returns the reference price for a symbol, falling back to 1.0 for
// unknown assets.
func (t Table) Price(symbol string) float64 {
	if p, ok := t[symbol]; ok && p > 0 {
		return p
	}
	return 1.0
}

// Merge returns a copy of t with entries from override applied on top.
func (t Table) Merge(override Table) Table {
	out := make(Table, len(t)+len(override))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Source provides the reference price table for weekly ticks.
type Source interface {
	Snapshot() Table
	Name() string
}

// StaticSource serves a fixed table. Live market feeds are intentionally out
// of scope; the simulation derives all movement from its own perturbations.
type StaticSource struct {
	table Table
}

// NewStaticSource creates a StaticSource, using the defaults when the given
// table is empty.
func NewStaticSource(t Table) *StaticSource {
	if len(t) == 0 {
		t = Defaults()
	}
	return &StaticSource{table: t}
}

func (s *StaticSource) Snapshot() Table {
	out := make(Table, len(s.table))
	for k, v := range s.table {
		out[k] = v
	}
	return out
}

func (s *StaticSource) Name() string { return "static" }
