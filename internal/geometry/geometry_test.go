package geometry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/geometry"
)

func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestLayoutFlattenRoundTripIntact(t *testing.T) {
	symbols := sequence(700) // spans 3 tiles, 1 plane
	tiles, plan := geometry.Layout(symbols, "A")
	require.Equal(t, 3, plan.TotalTiles)
	require.Equal(t, 1, plan.Planes)

	back, present := geometry.Flatten(tiles, plan.TotalTiles, plan.TotalSymbols)
	assert.Equal(t, symbols, back[:len(symbols)])
	for _, p := range present {
		assert.True(t, p)
	}
}

func TestLayoutSpansMultiplePlanes(t *testing.T) {
	symbols := sequence(geometry.MaxVoxelsPerTile * (geometry.MaxTilesPerPlane + 2))
	_, plan := geometry.Layout(symbols, "B")
	assert.Equal(t, 2, plan.Planes)
	assert.Equal(t, geometry.MaxTilesPerPlane+2, plan.TotalTiles)
}

func TestFlattenToleratesOutOfOrderTiles(t *testing.T) {
	symbols := sequence(500)
	tiles, plan := geometry.Layout(symbols, "A")

	shuffled := []geometry.Tile{tiles[1], tiles[0]}
	if len(tiles) > 2 {
		shuffled = append(shuffled, tiles[2])
	}
	back, present := geometry.Flatten(shuffled, plan.TotalTiles, plan.TotalSymbols)
	assert.Equal(t, symbols, back[:len(symbols)])
	for _, p := range present {
		assert.True(t, p)
	}
}

func TestFlattenReportsGapsForMissingTiles(t *testing.T) {
	symbols := sequence(600)
	tiles, plan := geometry.Layout(symbols, "A")
	require.True(t, len(tiles) >= 2)

	survivors := []geometry.Tile{tiles[0], tiles[2]}
	_, present := geometry.Flatten(survivors, plan.TotalTiles, plan.TotalSymbols)

	// Tile 1's symbol range should be reported absent.
	start := geometry.MaxVoxelsPerTile
	end := start + geometry.MaxVoxelsPerTile
	for i := start; i < end; i++ {
		assert.False(t, present[i])
	}
}

func TestMapTilesConcurrentlyPreservesOrder(t *testing.T) {
	symbols := sequence(geometry.MaxVoxelsPerTile * 5)
	tiles, _ := geometry.Layout(symbols, "A")

	out, err := geometry.MapTilesConcurrently(context.Background(), tiles, func(t geometry.Tile) (geometry.Tile, error) {
		doubled := make([]int, len(t.Symbols))
		for i, s := range t.Symbols {
			doubled[i] = s * 2
		}
		t.Symbols = doubled
		return t, nil
	})
	require.NoError(t, err)
	for i, tile := range out {
		assert.Equal(t, tiles[i].Header, tile.Header)
		assert.Equal(t, tiles[i].Symbols[0]*2, tile.Symbols[0])
	}
}

func TestEmptySymbolStream(t *testing.T) {
	tiles, plan := geometry.Layout(nil, "A")
	assert.Empty(t, tiles)
	assert.Equal(t, 0, plan.TotalTiles)
}
