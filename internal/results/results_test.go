package results

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webutan/lain/internal/db/dbtest"
)

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	s := NewStore(dbtest.Open(t))
	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	first, err := s.Record(ctx, Summary{ChannelID: "c1", Mode: "vs_computer", Reason: "human_wins", ChainLength: 7, LastWord: "傘", EndedAt: base})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	_, err = s.Record(ctx, Summary{ChannelID: "c1", Mode: "multiplayer", Reason: "ended", ChainLength: 3,
		Scores: map[string]int{"alice": 2, "bob": 1}, EndedAt: base.Add(time.Minute)})
	require.NoError(t, err)
	_, err = s.Record(ctx, Summary{ChannelID: "c2", Mode: "word_basket", Reason: "ended", EndedAt: base})
	require.NoError(t, err)

	got, err := s.Recent(ctx, "c1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "multiplayer", got[0].Mode)
	require.Equal(t, map[string]int{"alice": 2, "bob": 1}, got[0].Scores)
	require.Equal(t, first.ID, got[1].ID)
	require.Nil(t, got[1].Scores)
	require.True(t, base.Equal(got[1].EndedAt))
}
