package main

import (
	"fmt"
	"log"

	"github.com/paulmach/orb"

	"github.com/TheAndreyZakharov/Cartopia-sub004/pkg/genstore"
)

func main() {
	// Open an already split generation directory
	store, err := genstore.Open("gen")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	// Define viewport (central Berlin)
	viewport := orb.Bound{
		Min: orb.Point{13.37, 52.50},
		Max: orb.Point{13.43, 52.54},
	}

	// The R-tree over feature bounds is built on first use
	features, err := store.FeaturesIn(viewport)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Visible features: %d\n", len(features))

	for _, feature := range features {
		fmt.Printf("  %s: %s\n", feature.Key(), feature.Tag("name"))
	}
}
