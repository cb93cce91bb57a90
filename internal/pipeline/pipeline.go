// Package pipeline orchestrates extraction: it loads one session's shards,
// runs the enabled segmenters over the materialized stream, and writes one
// compressed tuple file per segmenter. Sessions are independent units of
// work; a batch fans them out to a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jmeyers/combatlog/internal/discover"
	"github.com/jmeyers/combatlog/internal/event"
	"github.com/jmeyers/combatlog/internal/instance"
	"github.com/jmeyers/combatlog/internal/narration"
	"github.com/jmeyers/combatlog/internal/rpcmd"
	"github.com/jmeyers/combatlog/internal/shard"
	"github.com/jmeyers/combatlog/internal/tagger"
)

// Options configures a pipeline run.
type Options struct {
	OutDir string

	RP           bool
	RPAutomation bool
	Narration    bool
	Tagged       bool

	TaggerMinTokens int
	BotID           event.UserID

	// Workers bounds cross-session parallelism; zero means GOMAXPROCS.
	Workers int
	// ChunkSize is the dispatch granularity for load balancing; zero means 10.
	ChunkSize int

	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Result summarizes one processed session.
type Result struct {
	SessionID string
	Dir       string
	Stats     instance.Stats

	RPTuples        int
	NarrationTuples int
	TaggedTuples    int

	// Outputs lists the files written, one per segmenter that emitted.
	Outputs []string
	Err     error
}

// Emitted reports whether any segmenter produced output for the session.
func (r Result) Emitted() bool { return len(r.Outputs) > 0 }

// Session processes one session directory end to end. A panic while
// processing is confined to this session's result.
func Session(dir string, opts Options) (res Result) {
	res.SessionID = discover.SessionID(dir)
	res.Dir = dir

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("session %s: panic: %v", res.SessionID, r)
		}
	}()

	logger := opts.logger().With(zap.String("session", res.SessionID))

	events, err := shard.ReadDir(dir, logger)
	if err != nil {
		res.Err = fmt.Errorf("session %s: %w", res.SessionID, err)
		return res
	}

	inst := instance.New(events)
	res.Stats = inst.Stats()

	if opts.RP {
		tuples := rpcmd.Extract(inst, rpcmd.Options{IncludeAutomation: opts.RPAutomation})
		res.RPTuples = len(tuples)
		if len(tuples) > 0 {
			path := outPath(opts.OutDir, "rp", res.SessionID)
			if err := shard.WriteTuples(path, tuples); err != nil {
				res.Err = fmt.Errorf("session %s: %w", res.SessionID, err)
				return res
			}
			res.Outputs = append(res.Outputs, path)
		}
	}

	if opts.Narration {
		tuples := narration.Extract(inst)
		res.NarrationTuples = len(tuples)
		if len(tuples) > 0 {
			path := outPath(opts.OutDir, "narration", res.SessionID)
			if err := shard.WriteTuples(path, tuples); err != nil {
				res.Err = fmt.Errorf("session %s: %w", res.SessionID, err)
				return res
			}
			res.Outputs = append(res.Outputs, path)
		}
	}

	if opts.Tagged {
		tuples := tagger.Extract(inst, tagger.Options{
			MinTokens: opts.TaggerMinTokens,
			BotID:     opts.BotID,
		})
		res.TaggedTuples = len(tuples)
		if len(tuples) > 0 {
			path := outPath(opts.OutDir, "tagged", res.SessionID)
			if err := shard.WriteTuples(path, tuples); err != nil {
				res.Err = fmt.Errorf("session %s: %w", res.SessionID, err)
				return res
			}
			res.Outputs = append(res.Outputs, path)
		}
	}

	logger.Debug("session processed",
		zap.Int("events", res.Stats.Events),
		zap.Int("rp_tuples", res.RPTuples),
		zap.Int("narration_tuples", res.NarrationTuples),
		zap.Int("tagged_tuples", res.TaggedTuples))

	return res
}

// Batch processes session directories on a bounded worker pool, dispatching
// in fixed-size chunks. A failed session only fails its own result; siblings
// keep running. Results are positionally aligned with dirs.
func Batch(ctx context.Context, dirs []string, opts Options) []Result {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = 10
	}
	logger := opts.logger()

	results := make([]Result, len(dirs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(dirs); start += chunk {
		start := start
		end := min(start+chunk, len(dirs))
		g.Go(func() error {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				results[i] = Session(dirs[i], opts)
				if results[i].Err != nil {
					logger.Error("session failed",
						zap.String("session", results[i].SessionID),
						zap.Error(results[i].Err))
				}
			}
			return nil
		})
	}
	// The only group error is context cancellation; per-session failures are
	// carried in results.
	_ = g.Wait()
	return results
}

func outPath(outDir, extractor, sessionID string) string {
	return filepath.Join(outDir, extractor, sessionID+".jsonl.gz")
}
