// Bench is a benchmarking tool for measuring radixspline build time, model
// size, and query throughput against a B-tree and a plain binary search.
//
// Usage:
//
//	go run ./cmd/bench -keys 10000000 -dist lognormal -epsilon 32
//
// Flags:
//
//	-keys      Number of keys to generate (default: 10,000,000)
//	-dist      Key distribution: uniform, hashed, sequential, normal, lognormal (default: uniform)
//	-epsilon   Error bound (default: 32)
//	-radix     Radix table bits (default: 18)
//	-input     Read keys from a text file, one per line ("-" for stdin)
//	-binary    Read keys from a binary dump (uint64 count, then uint64 keys)
//	-sqlite    Read keys from a SQLite database
//	-query     Query used with -sqlite (default: SELECT key FROM data ORDER BY key)
//	-threads   Number of concurrent query goroutines (default: 1)
//	-out       Write the index to this file and query the mapped copy
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	mrand "math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"slices"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/btree"
	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tamirms/radixspline"
	"github.com/tamirms/radixspline/internal/keysource"
)

// getMaxRSS returns the maximum resident set size in bytes.
// Uses getrusage(RUSAGE_SELF) which tracks peak RSS since process start.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

type benchConfig struct {
	epsilon    uint64
	radixBits  int
	threads    int
	numQueries int
	out        string
	cpuprofile string
}

func (c benchConfig) validate() error {
	if c.numQueries <= 0 {
		return fmt.Errorf("-queries must be positive, got %d", c.numQueries)
	}
	return nil
}

func main() {
	keysFlag := flag.Int("keys", 10_000_000, "number of keys to generate")
	distFlag := flag.String("dist", "uniform", "key distribution: uniform, hashed, sequential, normal, lognormal")
	epsFlag := flag.Uint64("epsilon", 32, "error bound")
	radixFlag := flag.Int("radix", 18, "radix table bits")
	inputFlag := flag.String("input", "", "text file with one key per line (- for stdin)")
	binaryFlag := flag.String("binary", "", "binary key dump (uint64 count, then uint64 keys)")
	sqliteFlag := flag.String("sqlite", "", "SQLite database to read keys from")
	queryFlag := flag.String("query", "SELECT key FROM data ORDER BY key", "query used with -sqlite")
	threadsFlag := flag.Int("threads", 1, "number of concurrent query goroutines")
	queriesFlag := flag.Int("queries", 1_000_000, "number of lookups per structure")
	outFlag := flag.String("out", "", "write the index to this file and query the mapped copy")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file (build phase only)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	logCfg := zap.NewDevelopmentConfig()
	if !*verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := logCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := benchConfig{
		epsilon:    *epsFlag,
		radixBits:  *radixFlag,
		threads:    max(*threadsFlag, 1),
		numQueries: *queriesFlag,
		out:        *outFlag,
		cpuprofile: *cpuprofile,
	}
	if err := cfg.validate(); err != nil {
		logger.Fatal("invalid flags", zap.Error(err))
	}
	ctx := context.Background()

	switch {
	case *sqliteFlag != "":
		logger.Info("loading keys from sqlite", zap.String("path", *sqliteFlag), zap.String("query", *queryFlag))
		keys, err := keysource.FromSQLite(ctx, *sqliteFlag, *queryFlag)
		if err != nil {
			logger.Fatal("load keys", zap.Error(err))
		}
		err = run(ctx, logger, cfg, keys)
		if err != nil {
			logger.Fatal("benchmark failed", zap.Error(err))
		}
		return
	case *inputFlag != "" || *binaryFlag != "":
		keys, err := loadFile(*inputFlag, *binaryFlag)
		if err != nil {
			logger.Fatal("load keys", zap.Error(err))
		}
		if err := run(ctx, logger, cfg, keys); err != nil {
			logger.Fatal("benchmark failed", zap.Error(err))
		}
		return
	}

	logger.Info("generating keys", zap.Int("keys", *keysFlag), zap.String("dist", *distFlag))
	keys, err := generateKeys(*distFlag, *keysFlag)
	if err != nil {
		logger.Fatal("generate keys", zap.Error(err))
	}
	if err := run(ctx, logger, cfg, keys); err != nil {
		logger.Fatal("benchmark failed", zap.Error(err))
	}
}

// loadFile reads keys from a text file or a binary dump.
func loadFile(textPath, binaryPath string) ([]uint64, error) {
	path, parse := textPath, keysource.FromText
	if binaryPath != "" {
		path, parse = binaryPath, keysource.FromBinary
	}

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return parse(r)
}

// generateKeys produces n unsorted keys from the named distribution.
func generateKeys(dist string, n int) ([]uint64, error) {
	keys := make([]uint64, n)
	switch dist {
	case "uniform":
		for i := range keys {
			keys[i] = mrand.Uint64()
		}
	case "hashed":
		// Hashed sequential IDs, the typical shape of surrogate keys.
		var buf [8]byte
		seed := uint32(0x1234)
		for i := range keys {
			binary.LittleEndian.PutUint64(buf[:], uint64(i))
			keys[i] = murmur3.Sum64WithSeed(buf[:], seed)
		}
	case "sequential":
		for i := range keys {
			keys[i] = uint64(i) * 16
		}
	case "normal":
		for i := range keys {
			keys[i] = uint64(mrand.NormFloat64()*1e15 + (1 << 62))
		}
	case "lognormal":
		for i := range keys {
			keys[i] = uint64(mrand.ExpFloat64() * mrand.ExpFloat64() * 1e12)
		}
	default:
		return nil, fmt.Errorf("unknown distribution %q", dist)
	}
	return keys, nil
}

// run sorts keys, builds the index and the baselines, and prints a report.
func run[K radixspline.Key](ctx context.Context, logger *zap.Logger, cfg benchConfig, keys []K) error {
	if len(keys) == 0 {
		return fmt.Errorf("no keys")
	}

	sortStart := time.Now()
	if !slices.IsSorted(keys) {
		logger.Info("sorting keys")
		slices.Sort(keys)
	}
	sortDuration := time.Since(sortStart)

	runtime.GC()
	var baseline runtime.MemStats
	runtime.ReadMemStats(&baseline)
	baselineRSS := getMaxRSS()

	if cfg.cpuprofile != "" {
		f, err := os.Create(cfg.cpuprofile)
		if err != nil {
			return fmt.Errorf("create cpu profile: %w", err)
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("start cpu profile: %w", err)
		}
	}

	logger.Info("building index", zap.Int("keys", len(keys)), zap.Uint64("epsilon", cfg.epsilon))
	buildStart := time.Now()
	idx, err := radixspline.Build(keys,
		radixspline.WithEpsilon(cfg.epsilon),
		radixspline.WithRadixBits(cfg.radixBits),
		radixspline.WithLogger(logger),
	)
	buildDuration := time.Since(buildStart)
	if cfg.cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	var after runtime.MemStats
	runtime.ReadMemStats(&after)
	buildHeap := int64(after.TotalAlloc - baseline.TotalAlloc)
	buildRSS := getMaxRSS() - baselineRSS

	checkStart := time.Now()
	if err := idx.CheckErrorBound(ctx, runtime.GOMAXPROCS(0)); err != nil {
		return fmt.Errorf("error bound check: %w", err)
	}
	checkDuration := time.Since(checkStart)

	if cfg.out != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.out), 0o755); err != nil {
			return err
		}
		if err := idx.WriteFile(cfg.out); err != nil {
			return fmt.Errorf("write index: %w", err)
		}
		mapped, err := radixspline.Open[K](cfg.out)
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer func() { _ = mapped.Close() }()
		if err := mapped.Verify(); err != nil {
			return fmt.Errorf("verify index: %w", err)
		}
		logger.Info("wrote index", zap.String("path", cfg.out), zap.Uint64("bytes", mapped.SerializedSize()))
		idx = mapped
	}

	logger.Info("building b-tree baseline")
	treeStart := time.Now()
	tree := btree.NewG[K](32, func(a, b K) bool { return a < b })
	for _, k := range keys {
		tree.ReplaceOrInsert(k)
	}
	treeDuration := time.Since(treeStart)

	queries := make([]K, cfg.numQueries)
	for i := range queries {
		queries[i] = keys[mrand.IntN(len(keys))]
	}

	logger.Info("benchmarking queries", zap.Int("queries", len(queries)), zap.Int("threads", cfg.threads))
	rsLatency, err := measure(ctx, cfg.threads, queries, func(k K) bool {
		_, ok := idx.Find(k)
		return ok
	})
	if err != nil {
		return fmt.Errorf("radixspline queries: %w", err)
	}
	treeLatency, err := measure(ctx, cfg.threads, queries, tree.Has)
	if err != nil {
		return fmt.Errorf("b-tree queries: %w", err)
	}
	bsLatency, err := measure(ctx, cfg.threads, queries, func(k K) bool {
		_, ok := slices.BinarySearch(keys, k)
		return ok
	})
	if err != nil {
		return fmt.Errorf("binary search queries: %w", err)
	}

	s := idx.Stats()
	fmt.Printf("\n")
	fmt.Printf("╔═════════════════════╦══════════════════╗\n")
	fmt.Printf("║ Keys: %-14d║ ε: %-6d r: %-4d ║\n", s.NumKeys, s.Epsilon, s.RadixBits)
	fmt.Printf("╠═════════════════════╬══════════════════╣\n")
	fmt.Printf("║ Metric              ║ Value            ║\n")
	fmt.Printf("╠═════════════════════╬══════════════════╣\n")
	fmt.Printf("║ Spline points       ║ %12d     ║\n", s.SplinePoints)
	fmt.Printf("║ Model size          ║ %10.2f MB    ║\n", float64(s.ModelBytes)/1_000_000)
	fmt.Printf("║ Model bits per key  ║ %8.3f bits/key║\n", s.BitsPerKey)
	fmt.Printf("║ Sort time           ║ %8.2f sec     ║\n", sortDuration.Seconds())
	fmt.Printf("║ Build time          ║ %8.2f sec     ║\n", buildDuration.Seconds())
	fmt.Printf("║ Build throughput    ║ %8.2f M/sec   ║\n", float64(len(keys))/buildDuration.Seconds()/1_000_000)
	fmt.Printf("║ Build allocations   ║ %8.1f MB      ║\n", float64(buildHeap)/1_000_000)
	fmt.Printf("║ Build RSS growth    ║ %8.1f MB      ║\n", float64(buildRSS)/1_000_000)
	fmt.Printf("║ Bound check time    ║ %8.2f sec     ║\n", checkDuration.Seconds())
	fmt.Printf("║ B-tree build time   ║ %8.2f sec     ║\n", treeDuration.Seconds())
	fmt.Printf("║ Find latency        ║ %8.1f ns      ║\n", rsLatency)
	fmt.Printf("║ B-tree latency      ║ %8.1f ns      ║\n", treeLatency)
	fmt.Printf("║ Binary search       ║ %8.1f ns      ║\n", bsLatency)
	fmt.Printf("╚═════════════════════╩══════════════════╝\n")
	return nil
}

// measure runs lookup over queries split across threads goroutines and
// returns the mean latency per lookup in nanoseconds. Every query must hit.
func measure[K radixspline.Key](ctx context.Context, threads int, queries []K, lookup func(K) bool) (float64, error) {
	var misses atomic.Int64
	chunk := (len(queries) + threads - 1) / threads

	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()
	for lo := 0; lo < len(queries); lo += chunk {
		part := queries[lo:min(lo+chunk, len(queries))]
		g.Go(func() error {
			for i, k := range part {
				if i%65536 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				if !lookup(k) {
					misses.Add(1)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	elapsed := time.Since(start)

	if n := misses.Load(); n > 0 {
		return 0, fmt.Errorf("%d indexed keys not found", n)
	}
	// Wall time times goroutines approximates per-lookup cost under contention.
	return float64(elapsed.Nanoseconds()) * float64(min(threads, len(queries))) / float64(len(queries)), nil
}
