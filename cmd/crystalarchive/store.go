package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/geometry"
)

// tileFile is the on-disk shape of one tile: "any serialization that
// preserves these fields exactly is acceptable" per the voxel container
// contract. Symbols stand in for the physical (angle, retardance) pair
// since the core never writes to real media.
type tileFile struct {
	TileID     int   `json:"tile_id"`
	PlaneID    int   `json:"plane_id"`
	ProfileTag string `json:"profile_tag"`
	Symbols    []int `json:"symbols"`
}

func tilePath(dir string, h geometry.Header) string {
	return filepath.Join(dir, fmt.Sprintf("plane_%03d", h.PlaneID), fmt.Sprintf("tile_%04d.json", h.TileID))
}

func writeTiles(dir string, tiles []geometry.Tile) error {
	for _, t := range tiles {
		path := tilePath(dir, t.Header)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		raw, err := json.MarshalIndent(tileFile{
			TileID: t.Header.TileID, PlaneID: t.Header.PlaneID,
			ProfileTag: t.Header.ProfileTag, Symbols: t.Symbols,
		}, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// readTiles walks dir for plane_*/tile_*.json files and returns whatever
// subset survives — missing tiles are simply absent, matching the
// possibly-incomplete decode contract.
func readTiles(dir string) ([]geometry.Tile, error) {
	var out []geometry.Tile
	planeDirs, err := filepath.Glob(filepath.Join(dir, "plane_*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(planeDirs)
	for _, pd := range planeDirs {
		tileFiles, err := filepath.Glob(filepath.Join(pd, "tile_*.json"))
		if err != nil {
			return nil, err
		}
		sort.Strings(tileFiles)
		for _, tf := range tileFiles {
			raw, err := os.ReadFile(tf)
			if err != nil {
				return nil, err
			}
			var f tileFile
			if err := json.Unmarshal(raw, &f); err != nil {
				return nil, fmt.Errorf("%s: %w", tf, err)
			}
			out = append(out, geometry.Tile{
				Header:  geometry.Header{TileID: f.TileID, PlaneID: f.PlaneID, ProfileTag: f.ProfileTag},
				Symbols: f.Symbols,
			})
		}
	}
	return out, nil
}
