package channel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/channel"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/geometry"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/voxel"
)

func sampleTiles(t *testing.T) []geometry.Tile {
	t.Helper()
	symbols := make([]int, geometry.MaxVoxelsPerTile*5)
	for i := range symbols {
		symbols[i] = i % 8
	}
	tiles, _ := geometry.Layout(symbols, "A")
	return tiles
}

func TestSimulateIsDeterministicForSeed(t *testing.T) {
	table, err := voxel.Lookup(voxel.Mode3Bit)
	require.NoError(t, err)
	tiles := sampleTiles(t)

	a, repA := channel.New(123).Simulate(tiles, table, channel.Options{TileLossFraction: 0.2, BitflipProb: 0.01})
	b, repB := channel.New(123).Simulate(tiles, table, channel.Options{TileLossFraction: 0.2, BitflipProb: 0.01})

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Header, b[i].Header)
		assert.Equal(t, a[i].Symbols, b[i].Symbols)
	}
	assert.Equal(t, repA, repB)
}

func TestSimulateNoDamageIsIdentity(t *testing.T) {
	table, err := voxel.Lookup(voxel.Mode3Bit)
	require.NoError(t, err)
	tiles := sampleTiles(t)

	out, report := channel.New(1).Simulate(tiles, table, channel.Options{})
	require.Equal(t, len(tiles), len(out))
	for i := range tiles {
		assert.Equal(t, tiles[i].Symbols, out[i].Symbols)
	}
	assert.Equal(t, 0, report.TilesLost)
	assert.Equal(t, 0, report.ExpectedBitflips)
}

func TestSimulateTileLossDropsTiles(t *testing.T) {
	table, err := voxel.Lookup(voxel.Mode3Bit)
	require.NoError(t, err)
	tiles := sampleTiles(t)

	out, report := channel.New(7).Simulate(tiles, table, channel.Options{TileLossFraction: 0.4})
	assert.Less(t, len(out), len(tiles))
	assert.Equal(t, len(tiles)-len(out), report.TilesLost)
}

func TestApplyBitflipsZeroProbabilityIsIdentity(t *testing.T) {
	m := channel.New(5)
	bits := []byte{0, 1, 0, 1, 1, 0}
	out := m.ApplyBitflips(bits, 0)
	assert.Equal(t, bits, out)
}

func TestApplyBitflipsFullProbabilityFlipsEverything(t *testing.T) {
	m := channel.New(5)
	bits := []byte{0, 1, 0, 1, 1, 0}
	out := m.ApplyBitflips(bits, 1.0)
	for i, b := range bits {
		assert.Equal(t, 1-b, out[i])
	}
}

func TestApplyPlaneErasureDropsWholePlanes(t *testing.T) {
	symbols := make([]int, geometry.MaxVoxelsPerTile*geometry.MaxTilesPerPlane*3)
	tiles, plan := geometry.Layout(symbols, "A")
	require.Equal(t, 3, plan.Planes)

	m := channel.New(9)
	survivors, lost := m.ApplyPlaneErasure(tiles, plan.Planes, 1.0/3.0)
	require.NotEmpty(t, lost)
	for _, tile := range survivors {
		for _, p := range lost {
			assert.NotEqual(t, p, tile.Header.PlaneID)
		}
	}
}

func TestGaussianNoisePerturbsDecodedSymbols(t *testing.T) {
	table, err := voxel.Lookup(voxel.Mode5Bit)
	require.NoError(t, err)
	tiles := sampleTiles(t)

	_, reportClean := channel.New(2).Simulate(tiles, table, channel.Options{})
	noisy, _ := channel.New(2).Simulate(tiles, table, channel.Options{AngleNoiseSigma: 30, RetardanceNoiseSigma: 0.4})
	assert.Equal(t, 0, reportClean.ExpectedBitflips)

	differs := false
	for i := range tiles {
		if len(noisy[i].Symbols) != len(tiles[i].Symbols) {
			continue
		}
		for j := range tiles[i].Symbols {
			if noisy[i].Symbols[j] != tiles[i].Symbols[j] {
				differs = true
			}
		}
	}
	assert.True(t, differs, "expected heavy angle/retardance noise to flip at least one decoded symbol")
}
