package evaluator

import (
	"cmp"
	"math"
	"slices"

	"github.com/tensorplex-labs/fastrank/internal/dataset"
	"github.com/tensorplex-labs/fastrank/internal/rankerr"
)

// RankedInstance is one scored document of a single query's ranked list.
type RankedInstance struct {
	Score float64
	Gain  float32
	ID    uint32
}

// NewRankedInstance rejects NaN scores and gains so that the ranking order
// stays total.
func NewRankedInstance(score float64, gain float32, id uint32) (RankedInstance, error) {
	if math.IsNaN(score) {
		return RankedInstance{}, rankerr.Invalid("NaN score for instance %d", id)
	}
	if math.IsNaN(float64(gain)) {
		return RankedInstance{}, rankerr.Invalid("NaN gain for instance %d", id)
	}
	return RankedInstance{Score: score, Gain: gain, ID: id}, nil
}

func (r RankedInstance) IsRelevant() bool {
	return r.Gain > 0
}

// Compare orders by score descending, then gain ascending, then id
// ascending. Among equal scores the less relevant document comes first, so
// ties never inflate a metric.
func Compare(a, b RankedInstance) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Gain, b.Gain); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Sort puts ranked into evaluation order in place.
func Sort(ranked []RankedInstance) {
	slices.SortFunc(ranked, Compare)
}

// RankedLists groups the scored instances of ds by query and sorts each
// list. scores must have one entry per element of ds.Instances().
func RankedLists(ds dataset.RankingDataset, scores []float64) (map[string][]RankedInstance, error) {
	instances := ds.Instances()
	if len(scores) != len(instances) {
		return nil, &rankerr.ShapeError{Field: "scores", Expected: len(instances), Actual: len(scores)}
	}
	gains := ds.Gains()
	qids := ds.QueryIDs()

	lists := make(map[string][]RankedInstance)
	for i, id := range instances {
		ri, err := NewRankedInstance(scores[i], gains[i], uint32(id))
		if err != nil {
			return nil, err
		}
		lists[qids[i]] = append(lists[qids[i]], ri)
	}
	for _, list := range lists {
		Sort(list)
	}
	return lists, nil
}

func relevantGains(ranked []RankedInstance) []float32 {
	out := make([]float32, 0, len(ranked))
	for _, ri := range ranked {
		if ri.IsRelevant() {
			out = append(out, ri.Gain)
		}
	}
	return out
}
