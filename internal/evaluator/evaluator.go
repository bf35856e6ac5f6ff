// Package evaluator ranks scored instances per query and computes reciprocal rank, NDCG and average precision.
package evaluator

import (
	"strconv"
	"strings"

	"github.com/tensorplex-labs/fastrank/internal/dataset"
	"github.com/tensorplex-labs/fastrank/internal/qrel"
	"github.com/tensorplex-labs/fastrank/internal/rankerr"
)

// Evaluator scores one query's ranked list. ranked must already be in
// Compare order and contain only that query's instances. Implementations are
// immutable after construction and safe for concurrent use.
type Evaluator interface {
	Name() string
	Score(qid string, ranked []RankedInstance) float64
}

// Measure identifies an evaluator family plus its cutoff depth.
type Measure struct {
	Kind  MeasureKind
	Depth int
}

type MeasureKind string

const (
	MeasureRR   MeasureKind = "rr"
	MeasureAP   MeasureKind = "ap"
	MeasureNDCG MeasureKind = "ndcg"
)

// ParseMeasure accepts rr, mrr, recip_rank, ap, map, ndcg and ndcg@k,
// case-insensitively.
func ParseMeasure(s string) (Measure, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	base, depthStr, hasDepth := strings.Cut(name, "@")

	var m Measure
	switch base {
	case "rr", "mrr", "recip_rank":
		m.Kind = MeasureRR
	case "ap", "map":
		m.Kind = MeasureAP
	case "ndcg":
		m.Kind = MeasureNDCG
	default:
		return Measure{}, rankerr.Invalid("unknown measure %q", s)
	}

	if hasDepth {
		if m.Kind != MeasureNDCG {
			return Measure{}, rankerr.Invalid("measure %q does not take a depth", s)
		}
		depth, err := strconv.Atoi(depthStr)
		if err != nil || depth <= 0 {
			return Measure{}, rankerr.Invalid("bad depth in measure %q", s)
		}
		m.Depth = depth
	}
	return m, nil
}

// Build constructs the evaluator for m. ds and judgments may be nil; the
// evaluator then derives its normalizers from each ranked list.
func (m Measure) Build(ds dataset.RankingDataset, judgments *qrel.QuerySetJudgments) Evaluator {
	switch m.Kind {
	case MeasureAP:
		return NewAveragePrecision(ds, judgments)
	case MeasureNDCG:
		return NewNDCG(m.Depth, ds, judgments)
	}
	return ReciprocalRank{}
}

// New parses measure and builds its evaluator against ds and judgments.
func New(measure string, ds dataset.RankingDataset, judgments *qrel.QuerySetJudgments) (Evaluator, error) {
	m, err := ParseMeasure(measure)
	if err != nil {
		return nil, err
	}
	return m.Build(ds, judgments), nil
}
