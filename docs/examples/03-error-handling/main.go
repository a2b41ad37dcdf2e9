package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/TheAndreyZakharov/Cartopia-sub004/pkg/genstore"
)

func safePrepare(mgr *genstore.Manager, dir, source string) (*genstore.Store, error) {
	store, err := mgr.Prepare(dir, source)
	if err != nil {
		// Check if source exists
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("source not found: %s", source)
		}

		// Grid sections with size fields after the arrays cannot be streamed
		var oe *genstore.GridOrderingError
		if errors.As(err, &oe) {
			log.Printf("Reorder %s: %v must precede the grid arrays", source, oe.Missing)
			return nil, err
		}

		if errors.Is(err, genstore.ErrMalformedInput) {
			log.Printf("Source %s is not valid JSON: %v", source, err)
			return nil, err
		}

		log.Printf("Failed to prepare %s: %v", dir, err)
		return nil, err
	}

	// Validate generation data
	if store.Index().FeaturesCount == 0 {
		log.Printf("Warning: %s contains no features", source)
	}
	if store.Grid() == nil {
		log.Printf("Warning: %s has no terrain grid", source)
	}

	return store, nil
}

func main() {
	mgr, err := genstore.NewManager(genstore.DefaultManagerOptions())
	if err != nil {
		log.Fatal(err)
	}

	// Try to prepare a generation
	store, err := safePrepare(mgr, "gen", "coords.json")
	if err != nil {
		log.Printf("Error: %v", err)
		return
	}
	defer store.Close()

	fmt.Printf("Successfully prepared split: %s\n", store.Index().SplitID)
	fmt.Printf("Features: %d\n", store.Index().FeaturesCount)

	// Try to prepare from a non-existent source
	_, err = safePrepare(mgr, "gen-missing", "NONEXISTENT.json")
	if err != nil {
		log.Printf("Expected error: %v", err)
	}
}
