package words

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitEmbedded(t *testing.T) {
	require.NoError(t, Init(""))
	c := Candidates()
	require.Greater(t, len(c), 20)
	require.Equal(t, len(c), Stats())
	require.Equal(t, '空', c[0])

	seen := map[rune]bool{}
	for _, k := range c {
		require.False(t, seen[k], "duplicate %c", k)
		seen[k] = true
	}
	require.ElementsMatch(t, c, RandomCandidates())
}
