package main

import (
	"fmt"
	"log"

	"github.com/TheAndreyZakharov/Cartopia-sub004/pkg/genstore"
)

func main() {
	// Create manager
	mgr, err := genstore.NewManager(genstore.DefaultManagerOptions())
	if err != nil {
		log.Fatal(err)
	}

	// Split coords.json into gen/ unless gen/ is already fresh
	store, err := mgr.Prepare("gen", "coords.json")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	idx := store.Index()
	fmt.Printf("Split: %s\n", idx.SplitID)
	fmt.Printf("Features: %d\n", idx.FeaturesCount)

	// Point queries over the terrain grid
	grid := store.Grid()
	if grid == nil {
		fmt.Println("No terrain grid")
		return
	}
	meta := grid.Meta()
	fmt.Printf("Grid: %dx%d at (%d,%d)\n", meta.Width, meta.Height, meta.MinX, meta.MinZ)

	x, z := meta.MinX, meta.MinZ
	fmt.Printf("Ground at (%d,%d): %d\n", x, z, grid.GroundElevation(x, z))
	if y, ok := grid.WaterElevation(x, z); ok {
		fmt.Printf("Water at (%d,%d): %d\n", x, z, y)
	}
	if id, ok := grid.SurfaceMaterial(x, z); ok {
		fmt.Printf("Top block at (%d,%d): %s\n", x, z, id)
	}
}
