package evaluator

import (
	"math"
	"slices"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fastrank/internal/dataset"
	"github.com/tensorplex-labs/fastrank/internal/qrel"
)

// DCG sums (2^gain - 1) / log2(i+2) over the first depth gains. A depth of
// 0 means no cutoff.
func DCG(gains []float32, depth int) float64 {
	if depth > 0 && depth < len(gains) {
		gains = gains[:depth]
	}
	var dcg float64
	for i, g := range gains {
		dcg += (math.Exp2(float64(g)) - 1) / math.Log2(float64(i)+2)
	}
	return dcg
}

// idealDCG sorts the positive gains descending and returns their DCG, or
// false when there is nothing to normalize by.
func idealDCG(gains []float32, depth int) (float64, bool) {
	ideal := make([]float32, 0, len(gains))
	for _, g := range gains {
		if g > 0 {
			ideal = append(ideal, g)
		}
	}
	if len(ideal) == 0 {
		return 0, false
	}
	slices.SortFunc(ideal, func(a, b float32) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	})
	norm := DCG(ideal, depth)
	return norm, norm > 0
}

// NDCG normalizes the DCG of each ranked list by the DCG of its ideal
// ordering. Ideal gains come from the judgments for the query when present
// and otherwise from the dataset's own positive labels. The dataset fallback
// undercounts on sampled subsets of a larger judged corpus; that is a known
// approximation.
type NDCG struct {
	depth int
	// ideal holds the cached normalizer per query; false marks a query with
	// no relevant documents, which always scores 0.
	ideal map[string]idealNorm
}

type idealNorm struct {
	dcg float64
	ok  bool
}

var _ Evaluator = (*NDCG)(nil)

// NewNDCG computes every query's ideal DCG up front. ds and judgments may
// be nil.
func NewNDCG(depth int, ds dataset.RankingDataset, judgments *qrel.QuerySetJudgments) *NDCG {
	if depth < 0 {
		depth = 0
	}
	e := &NDCG{depth: depth, ideal: make(map[string]idealNorm)}
	if ds == nil {
		return e
	}

	fromJudgments := 0
	for qid, ids := range ds.InstancesByQuery() {
		var gains []float32
		if q, ok := judgments.Get(qid); ok {
			gains = q.GainVector()
			fromJudgments++
		} else {
			gains = make([]float32, 0, len(ids))
			for _, id := range ids {
				gains = append(gains, ds.Gain(id))
			}
		}
		dcg, ok := idealDCG(gains, depth)
		e.ideal[qid] = idealNorm{dcg: dcg, ok: ok}
	}

	log.Debug().
		Str("measure", e.Name()).
		Int("queries", len(e.ideal)).
		Int("judged_queries", fromJudgments).
		Msg("computed ideal DCG normalizers")
	return e
}

func (e *NDCG) Name() string {
	if e.depth > 0 {
		return "NDCG@" + strconv.Itoa(e.depth)
	}
	return "NDCG"
}

func (e *NDCG) Depth() int { return e.depth }

// Score divides the DCG of the relevant subsequence of ranked by the cached
// ideal DCG. Queries never seen at construction are normalized by their own
// ranked list.
func (e *NDCG) Score(qid string, ranked []RankedInstance) float64 {
	actual := relevantGains(ranked)

	norm, seen := e.ideal[qid]
	if !seen {
		norm.dcg, norm.ok = idealDCG(actual, e.depth)
	}
	if !norm.ok {
		return 0.0
	}
	return DCG(actual, e.depth) / norm.dcg
}
