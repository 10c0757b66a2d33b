package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gridsmith/sldgen/pkg/busbar"
	"github.com/gridsmith/sldgen/pkg/cache"
	"github.com/gridsmith/sldgen/pkg/convention"
	sldErrors "github.com/gridsmith/sldgen/pkg/errors"
	"github.com/gridsmith/sldgen/pkg/extract"
	"github.com/gridsmith/sldgen/pkg/layout"
	"github.com/gridsmith/sldgen/pkg/topology"
	"github.com/gridsmith/sldgen/pkg/validate"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete fetch → resolve → assemble pipeline with
// caching. The convention must be registered before the run.
func (r *Runner) Execute(ctx context.Context, src Source, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	conv, err := convention.Get(opts.Convention)
	if err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Fetch
	fetchStart := time.Now()
	rows, rowsHit, err := r.FetchWithCacheInfo(ctx, src, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	result.Rows = rows
	result.Stats.FetchTime = time.Since(fetchStart)
	result.Stats.RowCount = rows.Count()
	result.CacheInfo.RowsHit = rowsHit

	if data, err := json.Marshal(rows); err == nil {
		result.RowsHash = cache.Hash(data)
	}

	r.Logger.Info("fetched rows",
		"rows", result.Stats.RowCount,
		"cached", rowsHit,
		"duration", result.Stats.FetchTime)

	// Stage 2: Extract
	extractStart := time.Now()
	snap, err := extract.Snapshot(rows)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	g := topology.Build(snap)
	result.Snapshot = snap
	result.Graph = g
	result.Stats.ExtractTime = time.Since(extractStart)
	result.Stats.EquipmentCount = len(snap.Equipment)
	result.Stats.NodeCount = len(snap.Nodes)

	// Cached document short-circuit: assembly is a pure function of the
	// rows and the convention, so a hit skips resolve and validate.
	docKey := r.Keyer.DocumentKey(result.RowsHash, opts.DocumentKeyOpts())
	if !opts.Refresh && result.RowsHash != "" {
		if data, hit, err := r.Cache.Get(ctx, docKey); err == nil && hit {
			if doc, err := layout.Unmarshal(data); err == nil {
				result.Document = doc
				result.Stats.FindingCount = doc.Statistics.FindingsCount
				result.CacheInfo.DocumentHit = true
				return result, nil
			}
		}
	}

	// Stage 3: Resolve
	resolveStart := time.Now()
	res := busbar.Resolve(snap, g, opts.Logger)
	result.Resolution = res
	result.Stats.ResolveTime = time.Since(resolveStart)

	// Stage 4: Validate
	findings := validate.Run(snap, g, res)
	result.Findings = findings
	result.Stats.FindingCount = findings.Count()

	r.Logger.Info("resolved topology",
		"equipments", result.Stats.EquipmentCount,
		"nodes", result.Stats.NodeCount,
		"findings", result.Stats.FindingCount,
		"duration", result.Stats.ResolveTime)

	// Stage 5: Assemble
	assembleStart := time.Now()
	doc := layout.Assemble(snap, res, findings, conv)
	result.Document = doc
	result.Stats.AssembleTime = time.Since(assembleStart)

	if result.RowsHash != "" {
		if data, err := doc.Marshal(); err == nil {
			_ = r.Cache.Set(ctx, docKey, data, cache.TTLDocument)
		}
	}

	r.Logger.Info("assembled layout",
		"substations", doc.Statistics.Substations,
		"voltage_levels", doc.Statistics.VoltageLevels,
		"bays", doc.Statistics.Bays,
		"duration", result.Stats.AssembleTime)

	return result, nil
}

// FetchWithCacheInfo pulls rows from the source with caching and returns
// cache hit info. Transient network failures are retried with backoff.
func (r *Runner) FetchWithCacheInfo(ctx context.Context, src Source, opts Options) (*extract.Rows, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	cacheable := opts.Endpoint != "" && opts.Dataset != ""
	var cacheKey string
	if cacheable {
		cacheKey = r.Keyer.RowsKey(opts.Endpoint, opts.Dataset)
	}

	if cacheable && !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var rows extract.Rows
			if err := json.Unmarshal(data, &rows); err == nil {
				return &rows, true, nil
			}
		}
	}

	var rows *extract.Rows
	err := cache.RetryWithBackoff(ctx, func() error {
		var ferr error
		rows, ferr = src.Fetch(ctx)
		if sldErrors.Is(ferr, sldErrors.ErrCodeSPARQLNetwork) {
			return cache.Retryable(ferr)
		}
		return ferr
	})
	if err != nil {
		return nil, false, err
	}

	if cacheable {
		if data, err := json.Marshal(rows); err == nil {
			_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLRows)
		}
	}

	return rows, false, nil
}

// Fetch is a convenience wrapper that discards the cache hit info.
func (r *Runner) Fetch(ctx context.Context, src Source, opts Options) (*extract.Rows, error) {
	rows, _, err := r.FetchWithCacheInfo(ctx, src, opts)
	return rows, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
