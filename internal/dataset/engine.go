package dataset

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/corpusforge/fimgen/internal/corpus"
	"github.com/corpusforge/fimgen/internal/manifest"
	"github.com/corpusforge/fimgen/internal/span"
)

// rngStream is the fixed second word of the PCG seed. All entropy lives
// in the first word (run seed, XORed with the basename hash for batch
// files).
const rngStream = 0x66696d67656e

// Engine orchestrates eval and mix runs over corpus files and records
// their outcomes in the manifest store.
type Engine struct {
	sel     *span.Selector
	store   manifest.Store
	seed    uint64
	charset string
	workers int
}

// NewEngine creates an engine. A nil store disables manifest tracking.
func NewEngine(sel *span.Selector, store manifest.Store, seed uint64, charset string, workers int) *Engine {
	if store == nil {
		store = manifest.NopStore{}
	}
	if workers <= 0 {
		workers = 4
	}
	return &Engine{sel: sel, store: store, seed: seed, charset: charset, workers: workers}
}

// EvalRequest describes a single-file eval dataset build.
type EvalRequest struct {
	Input      string `json:"input"`
	Output     string `json:"output"`
	SamplesCap int    `json:"samples_cap"`
}

// MixRequest describes a mixing run over one or more corpus files.
type MixRequest struct {
	Inputs  []string `json:"inputs"`
	Percent float64  `json:"percent"`
	Mode    MixMode  `json:"mode"`
	OutDir  string   `json:"out_dir,omitempty"`
	OutExt  string   `json:"out_ext,omitempty"`
}

// RunEval converts one input file into a FIM-only eval dataset.
func (e *Engine) RunEval(ctx context.Context, req EvalRequest) (*Stats, error) {
	log := zap.L().With(zap.String("component", "dataset.engine"))

	run, err := e.store.CreateRun(ctx, "eval", req)
	if err != nil {
		return nil, eris.Wrap(err, "engine: create run")
	}
	log = log.With(zap.String("run_id", run.ID))
	log.Info("eval starting",
		zap.String("input", req.Input),
		zap.Int("samples_cap", req.SamplesCap),
	)

	start := time.Now()
	stats, err := e.evalFile(ctx, req)
	if err != nil {
		log.Error("eval failed", zap.Error(err))
		if storeErr := e.store.FailRun(ctx, run.ID, err.Error()); storeErr != nil {
			log.Error("failed to record run failure", zap.Error(storeErr))
		}
		return nil, err
	}

	if _, err := e.store.RecordFile(ctx, run.ID, manifest.FileReport{
		Input:  req.Input,
		Output: req.Output,
		Stats:  stats,
	}); err != nil {
		log.Error("failed to record file result", zap.Error(err))
	}
	if err := e.store.CompleteRun(ctx, run.ID, stats); err != nil {
		log.Error("failed to record run completion", zap.Error(err))
	}

	log.Info("eval complete",
		zap.String("output", req.Output),
		zap.Int("records_seen", stats.RecordsSeen),
		zap.Int("written", stats.Written),
		zap.Duration("elapsed", time.Since(start)),
	)
	return stats, nil
}

func (e *Engine) evalFile(ctx context.Context, req EvalRequest) (*Stats, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	records, readStats, err := corpus.ReadFile(req.Input, e.charset)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(e.seed, rngStream))
	lines, stats := BuildEval(records, e.sel, rng, req.SamplesCap)
	stats.Skipped += readStats.Skipped
	stats.Malformed += readStats.Malformed

	if err := writeLines(req.Output, lines); err != nil {
		return nil, err
	}
	return stats, nil
}

// RunMix converts a percentage of records in each input file and blends
// them back with the originals. Files are processed in parallel; each
// derives its own generator from the run seed and its basename, so
// results do not depend on batch order or worker scheduling.
func (e *Engine) RunMix(ctx context.Context, req MixRequest) (*Stats, error) {
	log := zap.L().With(zap.String("component", "dataset.engine"))

	run, err := e.store.CreateRun(ctx, "mix", req)
	if err != nil {
		return nil, eris.Wrap(err, "engine: create run")
	}
	log = log.With(zap.String("run_id", run.ID))
	log.Info("mix run starting",
		zap.Int("files", len(req.Inputs)),
		zap.Float64("percent", req.Percent),
		zap.String("mode", string(req.Mode)),
	)

	var (
		mu    sync.Mutex
		total = NewStats()

		done, failed atomic.Int64
	)
	progress := rate.Sometimes{Interval: time.Second}
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, input := range req.Inputs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			flog := log.With(zap.String("input", input))
			output := OutputName(input, req.Percent, req.OutDir, req.OutExt)

			stats, err := e.mixFile(input, output, req)
			if err != nil {
				failed.Add(1)
				flog.Error("mix failed", zap.Error(err))
				if _, storeErr := e.store.RecordFile(gctx, run.ID, manifest.FileReport{
					Input: input,
					Error: err.Error(),
				}); storeErr != nil {
					flog.Error("failed to record file result", zap.Error(storeErr))
				}
				return nil // don't abort the batch on individual failure
			}

			mu.Lock()
			total.Merge(stats)
			mu.Unlock()

			if _, storeErr := e.store.RecordFile(gctx, run.ID, manifest.FileReport{
				Input:  input,
				Output: output,
				Stats:  stats,
			}); storeErr != nil {
				flog.Error("failed to record file result", zap.Error(storeErr))
			}

			n := done.Add(1)
			progress.Do(func() {
				log.Info("mix progress",
					zap.Int64("files_done", n),
					zap.Int("files_total", len(req.Inputs)),
				)
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("mix run aborted", zap.Error(err))
		if storeErr := e.store.FailRun(ctx, run.ID, err.Error()); storeErr != nil {
			log.Error("failed to record run failure", zap.Error(storeErr))
		}
		return nil, err
	}

	if failed.Load() > 0 && done.Load() == 0 {
		err := eris.Errorf("engine: all %d input files failed", failed.Load())
		if storeErr := e.store.FailRun(ctx, run.ID, err.Error()); storeErr != nil {
			log.Error("failed to record run failure", zap.Error(storeErr))
		}
		return nil, err
	}

	if err := e.store.CompleteRun(ctx, run.ID, total); err != nil {
		log.Error("failed to record run completion", zap.Error(err))
	}

	log.Info("mix run complete",
		zap.Int64("files_done", done.Load()),
		zap.Int64("files_failed", failed.Load()),
		zap.Int("converted", total.Converted),
		zap.Int("written", total.Written),
		zap.Duration("elapsed", time.Since(start)),
	)
	return total, nil
}

func (e *Engine) mixFile(input, output string, req MixRequest) (*Stats, error) {
	records, readStats, err := corpus.ReadFile(input, e.charset)
	if err != nil {
		return nil, err
	}

	lines, stats := Mix(records, e.sel, e.fileRNG(input), req.Percent, req.Mode)
	stats.Skipped += readStats.Skipped
	stats.Malformed += readStats.Malformed

	if err := writeLines(output, lines); err != nil {
		return nil, err
	}
	return stats, nil
}

// fileRNG returns the generator for one batch file, seeded from the run
// seed and the file's basename.
func (e *Engine) fileRNG(path string) *rand.Rand {
	return rand.New(rand.NewPCG(fileSeed(e.seed, path), rngStream))
}

func fileSeed(seed uint64, path string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(filepath.Base(path)))
	return seed ^ h.Sum64()
}

// OutputName derives the mixed-output path for an input file: the input
// stem plus the FIM percentage, e.g. corpus.jsonl at 20% becomes
// corpus_20FIM.jsonl. An empty outDir keeps the input's directory; an
// empty outExt means .jsonl.
func OutputName(input string, percent float64, outDir, outExt string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(filepath.Base(input), ext)
	if outExt == "" {
		outExt = ".jsonl"
	}
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	return filepath.Join(outDir, fmt.Sprintf("%s_%dFIM%s", stem, int(percent), outExt))
}

func writeLines(path string, lines []string) error {
	w, err := corpus.NewWriter(path)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if err := w.WriteText(line); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}
