package prices

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceFallsBackToOne(t *testing.T) {
	table := Defaults()
	assert.Equal(t, 97000.0, table.Price("BTC"))
	assert.Equal(t, 1.0, table.Price("DOGE"))
}

func TestMergeOverrides(t *testing.T) {
	merged := Defaults().Merge(Table{"BTC": 50000, "NEO": 12})
	assert.Equal(t, 50000.0, merged.Price("BTC"))
	assert.Equal(t, 3600.0, merged.Price("ETH"))
	assert.Equal(t, 12.0, merged.Price("NEO"))

	// The original table is untouched.
	assert.Equal(t, 97000.0, Defaults().Price("BTC"))
}

func TestStaticSourceSnapshotIsACopy(t *testing.T) {
	src := NewStaticSource(Table{"BTC": 100})
	snap := src.Snapshot()
	snap["BTC"] = 1

	assert.Equal(t, 100.0, src.Snapshot().Price("BTC"))
}

func TestStaticSourceDefaultsWhenEmpty(t *testing.T) {
	src := NewStaticSource(nil)
	assert.Equal(t, "static", src.Name())
	assert.Equal(t, 3600.0, src.Snapshot().Price("ETH"))
}
