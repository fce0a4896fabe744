package radixspline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	streamerrors "github.com/tamirms/radixspline/errors"
	"github.com/tamirms/radixspline/internal/radix"
	"github.com/tamirms/radixspline/internal/spline"
)

const (
	// contextCheckInterval is how often to check for context cancellation during Add.
	contextCheckInterval = 10000

	// maxKeys is the maximum number of keys (~1.1 trillion). Positions and
	// corridor arithmetic assume ranks fit in 40 bits.
	maxKeys = uint64(1) << 40
)

// Build constructs an index over keys, which must be sorted in non-decreasing
// order and contain no NaN values.
//
// The index borrows keys: the caller must not modify the slice while the
// index is in use.
func Build[K Key](keys []K, opts ...BuildOption) (*Index[K], error) {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, streamerrors.ErrEmptyIndex
	}
	if uint64(len(keys)) > maxKeys {
		return nil, streamerrors.ErrTooManyKeys
	}

	codec := newKeyCodec[K]()
	sb := spline.NewBuilder(cfg.epsilon, 0)
	for i, k := range keys {
		if isNaN(k) {
			return nil, fmt.Errorf("%w (position %d)", streamerrors.ErrInvalidKey, i)
		}
		if err := sb.Add(codec.image(k)); err != nil {
			return nil, fmt.Errorf("%w (position %d)", err, i)
		}
	}
	return finishIndex(cfg, codec, keys, sb)
}

// finishIndex closes the spline, builds the radix table over it and
// assembles the index.
func finishIndex[K Key](cfg *buildConfig, codec keyCodec[K], keys []K, sb *spline.Builder) (*Index[K], error) {
	points, err := sb.Finish()
	if err != nil {
		return nil, err
	}
	table, err := radix.Build(points, cfg.radixBits)
	if err != nil {
		return nil, err
	}

	idx := &Index[K]{
		codec:    codec,
		keys:     keys,
		points:   points,
		table:    table,
		epsilon:  cfg.epsilon,
		minKey:   keys[0],
		maxKey:   keys[len(keys)-1],
		minImage: points[0].Key,
		maxImage: points[len(points)-1].Key,
	}

	cfg.logger.Debug("radixspline: built index",
		zap.Uint64("keys", sb.NumKeys()),
		zap.Uint64("distinctKeys", sb.Distinct()),
		zap.Uint64("epsilon", cfg.epsilon),
		zap.Int("splinePoints", len(points)),
		zap.Uint32("radixBits", table.Bits),
		zap.Uint32("shiftBits", table.Shift),
		zap.Stringer("keyKind", codec.kind),
	)
	return idx, nil
}

// Builder provides an Add-style API for building an index from a stream of
// sorted keys. Unlike Build, the builder owns the keys it accumulates.
//
// Usage:
//
//	builder, err := radixspline.NewBuilder[uint64](ctx, radixspline.WithEpsilon(16))
//	if err != nil { return err }
//	defer builder.Close()
//
//	for _, key := range sortedKeys {
//	    if err := builder.Add(key); err != nil { return err }
//	}
//	idx, err := builder.Finish()
type Builder[K Key] struct {
	ctx        context.Context
	cfg        *buildConfig
	codec      keyCodec[K]
	spline     *spline.Builder
	keys       []K
	keyCounter int
	closed     bool
}

// NewBuilder creates a streaming builder. Keys must be added in non-decreasing order.
func NewBuilder[K Key](ctx context.Context, opts ...BuildOption) (*Builder[K], error) {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Builder[K]{
		ctx:    ctx,
		cfg:    cfg,
		codec:  newKeyCodec[K](),
		spline: spline.NewBuilder(cfg.epsilon, 0),
	}, nil
}

// Add appends the next key.
func (b *Builder[K]) Add(key K) error {
	if b.closed {
		return streamerrors.ErrBuilderClosed
	}

	// Check context periodically
	b.keyCounter++
	if b.keyCounter >= contextCheckInterval {
		b.keyCounter = 0
		select {
		case <-b.ctx.Done():
			return b.ctx.Err()
		default:
		}
	}

	if isNaN(key) {
		return fmt.Errorf("%w (position %d)", streamerrors.ErrInvalidKey, len(b.keys))
	}
	if uint64(len(b.keys)) >= maxKeys {
		return streamerrors.ErrTooManyKeys
	}
	if err := b.spline.Add(b.codec.image(key)); err != nil {
		return fmt.Errorf("%w (position %d)", err, len(b.keys))
	}
	b.keys = append(b.keys, key)
	return nil
}

// Finish completes the index. After calling Finish, the builder cannot be used again.
func (b *Builder[K]) Finish() (*Index[K], error) {
	if b.closed {
		return nil, streamerrors.ErrBuilderClosed
	}
	b.closed = true

	if err := b.ctx.Err(); err != nil {
		return nil, err
	}
	if len(b.keys) == 0 {
		return nil, streamerrors.ErrEmptyIndex
	}
	keys := b.keys
	b.keys = nil
	return finishIndex(b.cfg, b.codec, keys, b.spline)
}

// Close aborts the build and releases accumulated keys.
// Safe to call after Finish.
func (b *Builder[K]) Close() error {
	b.closed = true
	b.keys = nil
	return nil
}
