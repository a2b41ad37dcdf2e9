package genstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/paulmach/orb"

	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/layout"
)

// Store is an open generation directory: the index descriptor, an optional
// GridStore and access to the feature file.
//
// A Store sees exactly one generation: features are read through the handle
// opened by Open and the grid through its mappings, so a later re-split of
// the directory does not change what an open Store returns. Close releases
// the grid mappings and file handles.
type Store struct {
	dir      string
	index    *Index
	grid     *GridStore
	features *os.File
	size     int64 // feature file size at Open

	fidxOnce sync.Once
	fidx     *FeatureIndex
	fidxErr  error

	mu      sync.RWMutex
	closed  bool
	onClose func()
}

// IsStale reports whether genDir must be re-split for source: true when the
// index descriptor is missing or older than the source document.
func IsStale(genDir, source string) (bool, error) {
	src, err := os.Stat(source)
	if err != nil {
		return false, fmt.Errorf("stat source: %w", err)
	}
	idx, err := os.Stat(layout.Path(genDir, layout.IndexFile))
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat index: %w", err)
	}
	return idx.ModTime().Before(src.ModTime()), nil
}

// Open opens an already split generation directory. No freshness check is
// made; use Manager.Prepare for that.
//
// The grid is opened only when grid metadata exists; otherwise Grid returns
// nil and grid queries report no data.
func Open(genDir string) (*Store, error) {
	index, err := layout.ReadIndex(genDir)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	features, err := os.Open(layout.Path(genDir, layout.FeaturesFile))
	if err != nil {
		return nil, fmt.Errorf("open feature file: %w", err)
	}

	info, err := features.Stat()
	if err != nil {
		features.Close()
		return nil, fmt.Errorf("stat feature file: %w", err)
	}

	s := &Store{dir: genDir, index: index, features: features, size: info.Size()}
	if _, err := os.Stat(layout.Path(genDir, layout.GridMetaFile)); err == nil {
		grid, err := OpenGrid(genDir)
		if err != nil {
			features.Close()
			return nil, err
		}
		s.grid = grid
	} else if !errors.Is(err, os.ErrNotExist) {
		features.Close()
		return nil, fmt.Errorf("stat grid meta: %w", err)
	}
	return s, nil
}

// Dir returns the generation directory.
func (s *Store) Dir() string { return s.dir }

// Index returns the index descriptor. The returned value must not be modified.
func (s *Store) Index() *Index { return s.index }

// Grid returns the grid store, or nil when the document had no grid.
func (s *Store) Grid() *GridStore { return s.grid }

// Features returns a new, independent reader positioned at the first record.
// Readers share the Store's file handle and stop working once the Store is
// closed.
func (s *Store) Features() (*FeatureReader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return newFeatureReader(io.NewSectionReader(s.features, 0, s.size)), nil
}

// FeatureAt reads the single record at ref.Offset.
func (s *Store) FeatureAt(ref FeatureRef) (Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Feature{}, ErrClosed
	}
	return readFeatureAt(s.features, ref.Offset)
}

// FeatureIndex returns the spatial index over the feature file, building it
// on first use.
func (s *Store) FeatureIndex() (*FeatureIndex, error) {
	s.fidxOnce.Do(func() {
		r, err := s.Features()
		if err != nil {
			s.fidxErr = err
			return
		}
		defer r.Close()
		s.fidx, s.fidxErr = BuildFeatureIndex(r)
	})
	return s.fidx, s.fidxErr
}

// FeaturesIn returns the features whose bounds intersect b, in file order.
func (s *Store) FeaturesIn(b orb.Bound) ([]Feature, error) {
	idx, err := s.FeatureIndex()
	if err != nil {
		return nil, err
	}
	refs := idx.Query(b)
	out := make([]Feature, 0, len(refs))
	for _, ref := range refs {
		f, err := s.FeatureAt(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Close releases the grid mappings and the feature file. Safe to call more
// than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.onClose != nil {
		s.onClose()
	}
	return errors.Join(s.grid.Close(), s.features.Close())
}
