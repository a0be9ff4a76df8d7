package game

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webutan/lain/internal/lookup"
	"github.com/webutan/lain/internal/lookup/lookuptest"
)

func compoundDict() *lookuptest.Memory {
	return lookuptest.New(
		lookup.Entry{Word: "空港", Reading: "くうこう"},
		lookup.Entry{Word: "空気", Reading: "くうき"},
		lookup.Entry{Word: "空", Reading: "そら"},
		lookup.Entry{Word: "空中庭園", Reading: "くうちゅうていえん"},
		lookup.Entry{Word: "海港", Reading: "かいこう"},
		lookup.Entry{Word: "海水", Reading: "かいすい"},
		lookup.Entry{Word: "海", Reading: "うみ"},
	)
}

func TestPickCompoundDeterministic(t *testing.T) {
	ctx := context.Background()
	cands := []rune("空海猫")

	a, err := PickCompound(ctx, compoundDict(), cands, NewRandom(20261018), 0)
	require.NoError(t, err)
	b, err := PickCompound(ctx, compoundDict(), cands, NewRandom(20261018), 0)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Contains(t, []string{"空港", "空気", "海港", "海水"}, a.Word)
}

func TestPickCompoundSkipsCandidatesWithoutCompounds(t *testing.T) {
	e, err := PickCompound(context.Background(), compoundDict(), []rune("猫犬海"), fixedRand(0), 0)
	require.NoError(t, err)
	require.Contains(t, []string{"海港", "海水"}, e.Word)

	_, err = PickCompound(context.Background(), compoundDict(), []rune("猫犬"), fixedRand(0), 0)
	require.ErrorIs(t, err, ErrNoCompound)
}

func TestPickCompoundUpstreamError(t *testing.T) {
	mem := compoundDict()
	mem.Err = errors.New("down")
	_, err := PickCompound(context.Background(), mem, []rune("空"), fixedRand(0), 0)
	require.True(t, lookup.IsUpstream(err))
}
