package evaluator

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tensorplex-labs/fastrank/internal/dataset"
	"github.com/tensorplex-labs/fastrank/internal/rankerr"
)

type evalOptions struct {
	workers int
}

type EvalOption func(*evalOptions)

// WithWorkers bounds the number of queries scored concurrently. Values
// below 1 mean GOMAXPROCS.
func WithWorkers(n int) EvalOption {
	return func(o *evalOptions) {
		o.workers = n
	}
}

func newEvalOptions(opts []EvalOption) *evalOptions {
	o := &evalOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// EvaluateByQuery scores every instance of ds with model, ranks each query
// and returns the evaluator's score per query id. Queries are evaluated
// concurrently; ev and ds are only read.
func EvaluateByQuery(ctx context.Context, ds dataset.RankingDataset, model dataset.Model, ev Evaluator, opts ...EvalOption) (map[string]float64, error) {
	lists, err := RankedLists(ds, ds.ScoreAll(model))
	if err != nil {
		return nil, err
	}
	return EvaluateRankedLists(ctx, lists, ev, opts...)
}

// EvaluateRankedLists applies ev to already ranked per-query lists.
func EvaluateRankedLists(ctx context.Context, lists map[string][]RankedInstance, ev Evaluator, opts ...EvalOption) (map[string]float64, error) {
	workers := newEvalOptions(opts).workers
	startTime := time.Now()

	qids := make([]string, 0, len(lists))
	for qid := range lists {
		qids = append(qids, qid)
	}
	results := make([]float64, len(qids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, qid := range qids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = ev.Score(qid, lists[qid])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byQuery := make(map[string]float64, len(qids))
	for i, qid := range qids {
		byQuery[qid] = results[i]
	}

	log.Debug().
		Str("measure", ev.Name()).
		Int("queries", len(byQuery)).
		Int("workers", workers).
		Dur("elapsed", time.Since(startTime)).
		Msg("evaluated queries")
	return byQuery, nil
}

// EvaluateQuery scores a single query given parallel gain and score slices.
// A positive depth overrides the depth named in measure.
func EvaluateQuery(measure string, gains []float32, scores []float64, depth int) (float64, error) {
	if len(gains) != len(scores) {
		return 0, &rankerr.ShapeError{Field: "scores", Expected: len(gains), Actual: len(scores)}
	}
	m, err := ParseMeasure(measure)
	if err != nil {
		return 0, err
	}
	if depth > 0 {
		m.Depth = depth
	}

	ranked := make([]RankedInstance, len(gains))
	for i := range gains {
		ri, err := NewRankedInstance(scores[i], gains[i], uint32(i))
		if err != nil {
			return 0, err
		}
		ranked[i] = ri
	}
	Sort(ranked)

	return m.Build(nil, nil).Score("", ranked), nil
}
