// Package geometry implements C8: grouping a flat symbol stream into tiles
// and planes for physical layout, and the inverse — reassembling a symbol
// stream (with known gaps) from a subset of tiles read back in any order.
package geometry

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ccerrors"
)

// Layout bounds: up to 256 symbols per tile, up to 64 tiles per plane
// (§4.8).
const (
	MaxVoxelsPerTile = 256
	MaxTilesPerPlane = 64
)

// Header is the sync header written at the start of every tile so readers
// can place survivors even when tiles arrive out of order or are lost.
type Header struct {
	TileID     int
	PlaneID    int
	ProfileTag string
}

// Tile is one physical unit: a sync header plus up to MaxVoxelsPerTile
// symbols.
type Tile struct {
	Header  Header
	Symbols []int
}

// Plan describes the tile/plane shape a symbol stream was (or will be)
// arranged into.
type Plan struct {
	TotalSymbols int
	TilesX       int // tiles per plane (MaxTilesPerPlane; the last plane may hold fewer)
	Planes       int
	TotalTiles   int
}

// Layout arranges symbols into tiles and planes in deterministic row-major
// order: tiles fill within a plane in increasing tile_id, planes fill in
// increasing plane_id.
func Layout(symbols []int, profileTag string) ([]Tile, Plan) {
	totalTiles := (len(symbols) + MaxVoxelsPerTile - 1) / MaxVoxelsPerTile
	if totalTiles == 0 {
		return nil, Plan{}
	}

	tiles := make([]Tile, totalTiles)
	for i := 0; i < totalTiles; i++ {
		start := i * MaxVoxelsPerTile
		end := start + MaxVoxelsPerTile
		if end > len(symbols) {
			end = len(symbols)
		}
		tileID := i % MaxTilesPerPlane
		planeID := i / MaxTilesPerPlane
		tiles[i] = Tile{
			Header:  Header{TileID: tileID, PlaneID: planeID, ProfileTag: profileTag},
			Symbols: append([]int(nil), symbols[start:end]...),
		}
	}

	planes := (totalTiles + MaxTilesPerPlane - 1) / MaxTilesPerPlane
	return tiles, Plan{
		TotalSymbols: len(symbols),
		TilesX:       MaxTilesPerPlane,
		Planes:       planes,
		TotalTiles:   totalTiles,
	}
}

// Flatten sorts the given tiles by (plane_id, tile_id) and concatenates
// their symbols back into a stream. totalTiles is the tile count the
// original Layout produced; each tile absent from the input leaves a gap
// of zero symbols, marked false in the returned presence mask.
// totalSymbols is the original stream length Layout was given; the final
// tile may hold fewer than MaxVoxelsPerTile symbols, and Flatten needs
// that exact count to size a gap correctly when the final tile itself is
// among the missing ones.
func Flatten(tiles []Tile, totalTiles, totalSymbols int) (symbols []int, present []bool) {
	sorted := make([]Tile, len(tiles))
	copy(sorted, tiles)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Header.PlaneID != sorted[j].Header.PlaneID {
			return sorted[i].Header.PlaneID < sorted[j].Header.PlaneID
		}
		return sorted[i].Header.TileID < sorted[j].Header.TileID
	})

	byGlobalIndex := make(map[int]Tile, len(sorted))
	for _, t := range sorted {
		idx := t.Header.PlaneID*MaxTilesPerPlane + t.Header.TileID
		byGlobalIndex[idx] = t
	}

	for i := 0; i < totalTiles; i++ {
		tileLen := MaxVoxelsPerTile
		if remaining := totalSymbols - i*MaxVoxelsPerTile; remaining < tileLen {
			tileLen = remaining
		}
		if t, ok := byGlobalIndex[i]; ok {
			for range t.Symbols {
				present = append(present, true)
			}
			symbols = append(symbols, t.Symbols...)
		} else {
			for j := 0; j < tileLen; j++ {
				present = append(present, false)
				symbols = append(symbols, 0)
			}
		}
	}
	return symbols, present
}

// MapTilesConcurrently runs fn over every tile independently (e.g. per-tile
// voxel mapping) and returns the results in tile order, or the first error
// encountered. fn must be safe to call concurrently; results across calls
// must be deterministic for a given input, per the no-shared-state
// contract (§5).
func MapTilesConcurrently(ctx context.Context, tiles []Tile, fn func(Tile) (Tile, error)) ([]Tile, error) {
	out := make([]Tile, len(tiles))
	g, _ := errgroup.WithContext(ctx)
	for i, tile := range tiles {
		i, tile := i, tile
		g.Go(func() error {
			mapped, err := fn(tile)
			if err != nil {
				return fmt.Errorf("%w: tile %d: %v", ccerrors.ErrIOFailure, tile.Header.TileID, err)
			}
			out[i] = mapped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
