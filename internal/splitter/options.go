package splitter

import (
	"time"

	"github.com/go-kit/log"

	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/column"
	"github.com/TheAndreyZakharov/Cartopia-sub004/internal/layout"
)

// Options configures a split.
type Options struct {
	// Logger receives progress and data-quality warnings.
	// Default: log.NewNopLogger()
	Logger log.Logger

	// ReadBufferSize is the tokenizer read buffer in bytes.
	// Default: 64KB
	ReadBufferSize int

	// ColumnBufferCells is the number of values each column writer buffers.
	// Default: column.DefaultBufferCells
	ColumnBufferCells int

	// FeatureBufferSize is the write buffer of the feature file in bytes.
	// Default: 1MB
	FeatureBufferSize int

	// CenterCellLevel is the S2 level used for Index.CenterCell.
	// Default: 13
	CenterCellLevel int
}

// DefaultOptions returns split options with defaults.
func DefaultOptions() Options {
	return Options{
		Logger:            log.NewNopLogger(),
		ReadBufferSize:    64 * 1024,
		ColumnBufferCells: column.DefaultBufferCells,
		FeatureBufferSize: 1 << 20,
		CenterCellLevel:   13,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Logger == nil {
		o.Logger = def.Logger
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = def.ReadBufferSize
	}
	if o.ColumnBufferCells <= 0 {
		o.ColumnBufferCells = def.ColumnBufferCells
	}
	if o.FeatureBufferSize <= 0 {
		o.FeatureBufferSize = def.FeatureBufferSize
	}
	if o.CenterCellLevel <= 0 || o.CenterCellLevel > 30 {
		o.CenterCellLevel = def.CenterCellLevel
	}
	return o
}

// Result summarizes a completed split.
type Result struct {
	Index     *layout.Index
	Grid      *layout.GridMeta // nil when no grid column was written
	GridCells int64            // values written across all grid columns
	Duration  time.Duration
}
