package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendAndQuery(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Append(ctx, "run-1", "extract", "BLDG_1", "building_converted",
		map[string]any{"lod": "LOD2", "faces": 12}))
	require.NoError(t, s.Append(ctx, "run-1", "solid", "BLDG_2", "escalation_succeeded",
		map[string]any{"level": "unify"}))
	require.NoError(t, s.Append(ctx, "run-2", "export", "", "run_failed", nil))

	events, err := s.ByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "building_converted", events[0].EventType)
	require.Equal(t, "BLDG_1", events[0].BuildingID)
	require.EqualValues(t, 12, events[0].Details["faces"])
	require.Equal(t, "solid", events[1].Phase)

	other, err := s.ByRun(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	require.Nil(t, other[0].Details)
}

func TestByRunEmptyForUnknownRun(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	events, err := s.ByRun(context.Background(), "nope")
	require.NoError(t, err)
	require.Empty(t, events)
}
