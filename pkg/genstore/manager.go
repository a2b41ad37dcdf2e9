package genstore

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/splitter"
)

// Manager keeps generation directories fresh relative to their source
// documents and opens stores over them.
//
// Re-splits of the same directory are serialized: concurrent Prepare calls
// for one directory share a single split, and each caller receives its own
// Store. A split holds the directory exclusively, so no Prepare opens it
// while side-cars are being replaced.
//
// Example:
//
//	mgr, err := genstore.NewManager(genstore.ManagerOptions{
//	    Logger:     logger,
//	    Registerer: prometheus.DefaultRegisterer,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, err := mgr.Prepare(genDir, sourcePath)
type Manager struct {
	opts    ManagerOptions
	logger  log.Logger
	metrics *Metrics
	group   singleflight.Group

	mu   sync.Mutex
	dirs map[string]*sync.RWMutex
}

// SplitResult summarizes a split performed by the Manager.
type SplitResult struct {
	Index     *Index
	Grid      *GridMeta // nil when the document had no grid
	GridCells int64
}

// NewManager creates a manager and registers its metrics. Registering two
// managers on one Registerer panics, as prometheus.MustRegister does.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if err := opts.Split.validate(); err != nil {
		return nil, fmt.Errorf("split options: %w", err)
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Manager{
		opts:    opts,
		logger:  opts.Logger,
		metrics: NewMetrics(reg),
		dirs:    make(map[string]*sync.RWMutex),
	}, nil
}

// Metrics returns the manager metrics.
func (m *Manager) Metrics() *Metrics { return m.metrics }

// Prepare makes genDir fresh for source and opens it.
//
// When the index descriptor is missing or older than source, the document
// is split again before anything is opened. A failed split returns an error
// and leaves the directory stale.
func (m *Manager) Prepare(genDir, source string) (*Store, error) {
	outcome, err := m.ensureFresh(genDir, source)
	if err != nil {
		m.metrics.Prepares.WithLabelValues(outcomeError).Inc()
		return nil, err
	}

	lock := m.dirLock(genDir)
	lock.RLock()
	store, err := Open(genDir)
	lock.RUnlock()
	if err != nil {
		m.metrics.Prepares.WithLabelValues(outcomeError).Inc()
		return nil, err
	}
	m.metrics.Prepares.WithLabelValues(outcome).Inc()
	m.metrics.OpenStores.Inc()
	store.onClose = m.metrics.OpenStores.Dec
	return store, nil
}

// Split re-splits genDir from source unconditionally.
func (m *Manager) Split(genDir, source string) (*SplitResult, error) {
	for {
		f, err := m.do(genDir, source, true)
		if err != nil {
			return nil, err
		}
		// A joined Prepare may have found the directory fresh; go again.
		if f.result != nil {
			return f.result, nil
		}
	}
}

// flight is the shared outcome of one freshness check.
type flight struct {
	outcome string
	result  *SplitResult // nil when no split ran
}

// ensureFresh re-splits genDir when it is stale and reports which outcome applied.
func (m *Manager) ensureFresh(genDir, source string) (string, error) {
	f, err := m.do(genDir, source, m.opts.ForceSplit)
	if err != nil {
		return "", err
	}
	return f.outcome, nil
}

// do runs the freshness check and split for genDir, one at a time per directory.
func (m *Manager) do(genDir, source string, force bool) (*flight, error) {
	v, err, shared := m.group.Do(groupKey(genDir), func() (any, error) {
		if !force {
			stale, err := IsStale(genDir, source)
			if err != nil {
				return nil, err
			}
			if !stale {
				return &flight{outcome: outcomeFresh}, nil
			}
			level.Info(m.logger).Log("msg", "generation stale, splitting", "dir", genDir, "source", source)
		}
		res, err := m.split(genDir, source)
		if err != nil {
			return nil, err
		}
		return &flight{outcome: outcomeSplit, result: res}, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		level.Debug(m.logger).Log("msg", "joined in-flight split check", "dir", genDir)
	}
	return v.(*flight), nil
}

func (m *Manager) split(genDir, source string) (*SplitResult, error) {
	lock := m.dirLock(genDir)
	lock.Lock()
	res, err := splitter.Split(source, genDir, m.opts.Split.internal(m.logger))
	lock.Unlock()
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", filepath.Base(source), err)
	}
	m.metrics.SplitDuration.Observe(res.Duration.Seconds())
	m.metrics.SplitFeatures.Add(float64(res.Index.FeaturesCount))
	m.metrics.SplitCells.Add(float64(res.GridCells))
	return &SplitResult{Index: res.Index, Grid: res.Grid, GridCells: res.GridCells}, nil
}

// dirLock returns the lock guarding genDir: splits hold it exclusively,
// opens share it.
func (m *Manager) dirLock(genDir string) *sync.RWMutex {
	key := groupKey(genDir)
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.dirs[key]
	if !ok {
		l = &sync.RWMutex{}
		m.dirs[key] = l
	}
	return l
}

// groupKey normalizes a directory so that equivalent paths share a split.
func groupKey(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return filepath.Clean(dir)
}
