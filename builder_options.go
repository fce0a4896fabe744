package radixspline

import (
	"go.uber.org/zap"

	streamerrors "github.com/tamirms/radixspline/errors"
	"github.com/tamirms/radixspline/internal/radix"
)

const (
	// defaultEpsilon is the maximum distance between an estimated and a true
	// position when WithEpsilon is not given.
	defaultEpsilon = 32

	// defaultRadixBits sizes the radix table at 2^18+1 entries (1 MiB).
	defaultRadixBits = 18
)

// BuildOption is a functional option for configuring builds.
type BuildOption func(*buildConfig)

type buildConfig struct {
	epsilon   uint64
	radixBits int
	logger    *zap.Logger
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		epsilon:   defaultEpsilon,
		radixBits: defaultRadixBits,
		logger:    zap.NewNop(),
	}
}

func (c *buildConfig) validate() error {
	if c.radixBits < 0 || c.radixBits > radix.MaxBits {
		return streamerrors.ErrInvalidRadixBits
	}
	return nil
}

// WithEpsilon sets the error bound: the maximum distance between the
// estimated and the true position of any indexed key. Smaller values give
// more spline points and a shorter final search.
func WithEpsilon(epsilon uint64) BuildOption {
	return func(c *buildConfig) {
		c.epsilon = epsilon
	}
}

// WithRadixBits sets the number of key prefix bits used by the radix table.
// The table holds 2^bits+1 entries; bits must be in [0, 28].
func WithRadixBits(bits int) BuildOption {
	return func(c *buildConfig) {
		c.radixBits = bits
	}
}

// WithLogger sets the logger used to report build summaries.
// A nil logger disables logging.
func WithLogger(logger *zap.Logger) BuildOption {
	return func(c *buildConfig) {
		if logger == nil {
			logger = zap.NewNop()
		}
		c.logger = logger
	}
}
