package genstore

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/splitter"
)

// SplitOptions configures the splitter.
type SplitOptions struct {
	// ReadBufferSize is the tokenizer read buffer in bytes.
	// Default: 64KB
	ReadBufferSize int

	// ColumnBufferCells is the number of values each grid column buffers
	// before writing.
	// Default: 8192
	ColumnBufferCells int

	// FeatureBufferSize is the write buffer of the feature file in bytes.
	// Default: 1MB
	FeatureBufferSize int

	// CenterCellLevel is the S2 cell level of Index.CenterCell.
	// Default: 13
	CenterCellLevel int
}

// DefaultSplitOptions returns split options with defaults.
func DefaultSplitOptions() SplitOptions {
	def := splitter.DefaultOptions()
	return SplitOptions{
		ReadBufferSize:    def.ReadBufferSize,
		ColumnBufferCells: def.ColumnBufferCells,
		FeatureBufferSize: def.FeatureBufferSize,
		CenterCellLevel:   def.CenterCellLevel,
	}
}

func (o SplitOptions) validate() error {
	switch {
	case o.ReadBufferSize < 0:
		return fmt.Errorf("negative ReadBufferSize %d", o.ReadBufferSize)
	case o.ColumnBufferCells < 0:
		return fmt.Errorf("negative ColumnBufferCells %d", o.ColumnBufferCells)
	case o.FeatureBufferSize < 0:
		return fmt.Errorf("negative FeatureBufferSize %d", o.FeatureBufferSize)
	case o.CenterCellLevel < 0 || o.CenterCellLevel > 30:
		return fmt.Errorf("CenterCellLevel %d outside 0..30", o.CenterCellLevel)
	}
	return nil
}

func (o SplitOptions) internal(logger log.Logger) splitter.Options {
	return splitter.Options{
		Logger:            logger,
		ReadBufferSize:    o.ReadBufferSize,
		ColumnBufferCells: o.ColumnBufferCells,
		FeatureBufferSize: o.FeatureBufferSize,
		CenterCellLevel:   o.CenterCellLevel,
	}
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// Logger receives split progress and data-quality warnings.
	// Default: log.NewNopLogger()
	Logger log.Logger

	// Registerer receives the Manager metrics. When nil the metrics are
	// kept on a private registry.
	Registerer prometheus.Registerer

	// Split configures re-splits.
	Split SplitOptions

	// ForceSplit re-splits on every Prepare, ignoring modification times.
	// Default: false
	ForceSplit bool
}

// DefaultManagerOptions returns manager options with defaults.
func DefaultManagerOptions() ManagerOptions {
	return ManagerOptions{
		Logger: log.NewNopLogger(),
		Split:  DefaultSplitOptions(),
	}
}
