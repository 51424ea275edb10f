package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryRegistersAllInstrumentsWithoutPanicking(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r)

	r.TicksTotal.Inc()
	r.LoadedColumns.Set(3)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.TicksTotal))
	assert.Equal(t, float64(3), testutil.ToFloat64(r.LoadedColumns))
}

func TestTwoRegistriesDoNotConflict(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()
	a.TicksTotal.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(a.TicksTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.TicksTotal))
}
