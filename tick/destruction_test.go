package tick

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperion-mc/hyperion/world"
)

// TestTickEmitsOnlyDueDestructionStagesInOrder reproduces scheduling the
// eleven SetDestructionLevel stages (0..=10) 100ms apart, then advancing
// the clock 550ms: exactly stages 0..=5 must fire, in stage order, and
// no later stage fires early.
func TestTickEmitsOnlyDueDestructionStagesInOrder(t *testing.T) {
	loop, _, _ := newTestLoop(t)

	pos := world.BlockPos{X: 1, Y: 64, Z: 1}
	loop.ScheduleDestructionStages(pos, 99, 0, 1000) // stage s fires at 100*s (ms-as-tick units)

	fired, err := loop.Tick(context.Background(), 550, func(err error) { t.Fatalf("unexpected tick error: %v", err) })
	require.NoError(t, err)

	require.Len(t, fired, 6)
	for stage, d := range fired {
		assert.Equal(t, stage, d.Stage)
		assert.Equal(t, pos, d.Pos)
		assert.Equal(t, uint64(99), d.Seq)
	}
}
