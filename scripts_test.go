package jpegenc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/dlecorfec/jpegenc/internal/codec"
)

func TestScriptCatalog(t *testing.T) {
	lengths := []int{7, 8, 8, 10, 14, 13}
	require.Equal(t, len(lengths), NumScripts)
	for i, n := range lengths {
		s, err := Script(i + 1)
		require.NoError(t, err)
		require.Len(t, s, n)
	}
	for _, id := range []int{-1, 0, 7} {
		_, err := Script(id)
		require.True(t, errors.Is(err, ErrInvalidParameter))
	}

	// Scripts are copies.
	s, _ := Script(4)
	s[0].CompsInScan = 1
	again, _ := Script(4)
	require.Equal(t, 3, again[0].CompsInScan)
}

func TestFilterScanComponents(t *testing.T) {
	script, err := Script(4)
	require.NoError(t, err)

	require.Equal(t, script, FilterScanComponents(script, 3))

	gray := FilterScanComponents(script, 1)
	require.Len(t, gray, 6)
	for _, s := range gray {
		require.Equal(t, 1, s.CompsInScan)
		require.Equal(t, [4]int{}, s.ComponentIndex)
	}
	require.Equal(t, [4]int{0, 0, 0, 1}, [4]int{gray[0].Ss, gray[0].Se, gray[0].Ah, gray[0].Al})

	two := FilterScanComponents([]codec.ScanInfo{
		{CompsInScan: 3, ComponentIndex: [4]int{0, 1, 2}},
		{CompsInScan: 1, ComponentIndex: [4]int{2}, Ss: 1, Se: 63},
		{CompsInScan: 2, ComponentIndex: [4]int{2, 1}},
	}, 2)
	require.Equal(t, []codec.ScanInfo{
		{CompsInScan: 2, ComponentIndex: [4]int{0, 1}},
		{CompsInScan: 1, ComponentIndex: [4]int{1}},
	}, two)
	require.Empty(t, FilterScanComponents(nil, 3))
}

func TestSetProgression(t *testing.T) {
	newCompressor := func(components int) *codec.Compressor {
		c := codec.NewCompressor()
		c.InputComponents = components
		c.InColorSpace = codec.RGB
		if components == 1 {
			c.InColorSpace = codec.Grayscale
		}
		require.NoError(t, c.SetDefaults())
		return c
	}
	c := newCompressor(3)
	defer c.Destroy()
	require.NoError(t, setProgression(c, -1))
	require.Nil(t, c.ScanInfo)
	require.NoError(t, setProgression(c, 0))
	require.Len(t, c.ScanInfo, 10)
	require.NoError(t, setProgression(c, 5))
	require.Len(t, c.ScanInfo, 14)
	err := setProgression(c, 7)
	require.True(t, errors.Is(err, ErrInvalidParameter))
	require.Contains(t, err.Error(), "unknown jpeg scan script id 7")

	g := newCompressor(1)
	defer g.Destroy()
	require.NoError(t, setProgression(g, 5))
	require.Len(t, g.ScanInfo, 6)
}
