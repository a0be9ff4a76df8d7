package game

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webutan/lain/internal/lookup"
)

func TestDailyPuzzleOwnerAndPublicView(t *testing.T) {
	ctx := context.Background()
	d, err := NewDailyPuzzle(lookup.Entry{Word: "空港", Reading: "くうこう"}, testIndex(t), MaxGuesses, "u1", "c1", "2026-10-18")
	require.NoError(t, err)
	require.True(t, d.Accepts("u1"))
	require.False(t, d.Accepts("u2"))

	_, err = d.GuessAs(ctx, nouns(), "u2", "空気")
	require.True(t, IsReason(err, ReasonNotOwner))

	v := d.PublicView()
	require.Empty(t, v.Rows)
	require.Nil(t, v.Latest)
	require.Equal(t, MaxGuesses, v.Remaining)

	_, err = d.GuessAs(ctx, nouns(), "u1", "空気")
	require.NoError(t, err)
	_, err = d.GuessAs(ctx, nouns(), "u1", "海港")
	require.NoError(t, err)

	v = d.PublicView()
	require.Equal(t, [][]Tier{{TierGreen, TierGray}, {TierOrange, TierGreen}}, v.Rows)
	require.Equal(t, []Tier{TierOrange, TierGreen}, v.Latest)
	require.Equal(t, MaxGuesses-2, v.Remaining)
	require.Equal(t, StatePlaying, v.State)

	dump := fmt.Sprintf("%+v", v)
	for _, r := range "空気海港" {
		require.NotContains(t, dump, string(r))
	}

	d.SetPublicRef("msg-1")
	require.Equal(t, "msg-1", d.PublicRef())
}
