package radical

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	src := `# comment
空 : 宀 儿 工 穴

港 : 氵 共 巳
`
	idx, err := Load(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, 2, idx.Len())
	require.Equal(t, NewSet("宀", "儿", "工", "穴"), idx.RadicalsOf('空'))
	require.True(t, idx.RadicalsOf('港').Has("氵"))
}

func TestRadicalsOfUnknownIsEmpty(t *testing.T) {
	idx, err := Load(strings.NewReader("空 : 穴\n"))
	require.NoError(t, err)
	require.Empty(t, idx.RadicalsOf('猫'))

	var nilIdx *Index
	require.Empty(t, nilIdx.RadicalsOf('空'))
}

func TestLoadRejectsMalformed(t *testing.T) {
	_, err := Load(strings.NewReader("空 宀\n"))
	require.Error(t, err)
	_, err = Load(strings.NewReader("空港 : 宀\n"))
	require.Error(t, err)
}

func TestEmbeddedDefault(t *testing.T) {
	idx, err := LoadFile("")
	require.NoError(t, err)
	require.Greater(t, idx.Len(), 50)

	// 海 shares 氵 with 港 but nothing with 空; 気 shares nothing with either.
	require.Equal(t, NewSet("氵"), idx.RadicalsOf('海').Intersect(idx.RadicalsOf('港')))
	require.Empty(t, idx.RadicalsOf('海').Intersect(idx.RadicalsOf('空')))
	require.Empty(t, idx.RadicalsOf('気').Intersect(idx.RadicalsOf('空')))
	require.Empty(t, idx.RadicalsOf('気').Intersect(idx.RadicalsOf('港')))
}

func TestSetOps(t *testing.T) {
	a := NewSet("氵", "木")
	b := a.Clone()
	b.Union(NewSet("口"))
	require.Len(t, a, 2)
	require.Equal(t, []string{"口", "木", "氵"}, b.Sorted())
}
