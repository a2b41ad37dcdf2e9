package genstore

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func openFixtureStore(t *testing.T) *Store {
	t.Helper()
	f := fixture{minX: 0, minZ: 0, width: 2, height: 2, features: sampleFeatures[:1]}
	store, err := Open(f.split(t))
	require.NoError(t, err)
	return store
}

func TestRegistryAcquire(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()

	loads := 0
	loader := func() (*Store, error) {
		loads++
		return openFixtureStore(t), nil
	}

	first, err := reg.Acquire("overworld", loader)
	require.NoError(t, err)
	second, err := reg.Acquire("overworld", loader)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, loads)

	got, ok := reg.Get("overworld")
	require.True(t, ok)
	require.Same(t, first, got)
	_, ok = reg.Get("nether")
	require.False(t, ok)

	stats := reg.Stats()
	require.Equal(t, 1, stats.Stores)
	require.Equal(t, 2, stats.Hits)
	require.Equal(t, 2, stats.Misses)
	require.Equal(t, 3, stats.TotalAccess)
}

func TestRegistryAcquireError(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")

	_, err := reg.Acquire("a", func() (*Store, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, reg.Len())
}

func TestRegistryConcurrentAcquire(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()

	var loads atomic.Int32
	store := openFixtureStore(t)
	release := make(chan struct{})
	loader := func() (*Store, error) {
		loads.Add(1)
		<-release
		return store, nil
	}

	var wg sync.WaitGroup
	got := make([]*Store, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := reg.Acquire("area", loader)
			if err == nil {
				got[i] = s
			}
		}(i)
	}
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), loads.Load())
	for _, s := range got {
		require.Same(t, store, s)
	}
}

func TestRegistryRemoveCloses(t *testing.T) {
	reg := NewRegistry()
	store := openFixtureStore(t)
	require.NoError(t, reg.Put("a", store))
	require.Equal(t, []string{"a"}, reg.Keys())

	require.NoError(t, reg.Remove("a"))
	require.NoError(t, reg.Remove("a"))
	require.Equal(t, 0, reg.Len())

	_, err := store.Features()
	require.ErrorIs(t, err, ErrClosed)
}

func TestRegistryPutReplaces(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()
	old := openFixtureStore(t)
	replacement := openFixtureStore(t)

	require.NoError(t, reg.Put("a", old))
	require.NoError(t, reg.Put("a", replacement))

	_, err := old.Features()
	require.ErrorIs(t, err, ErrClosed)
	got, ok := reg.Get("a")
	require.True(t, ok)
	require.Same(t, replacement, got)
}

func TestRegistryClose(t *testing.T) {
	reg := NewRegistry()
	a, b := openFixtureStore(t), openFixtureStore(t)
	require.NoError(t, reg.Put("a", a))
	require.NoError(t, reg.Put("b", b))
	require.Equal(t, []string{"a", "b"}, reg.Keys())

	require.NoError(t, reg.Close())
	require.Equal(t, 0, reg.Len())
	for _, s := range []*Store{a, b} {
		_, err := s.Features()
		require.ErrorIs(t, err, ErrClosed)
	}
}
