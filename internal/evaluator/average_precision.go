package evaluator

import (
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fastrank/internal/dataset"
	"github.com/tensorplex-labs/fastrank/internal/qrel"
)

// AveragePrecision averages precision at every relevant rank over the
// number of relevant documents for the query.
type AveragePrecision struct {
	numRelevant map[string]int
}

var _ Evaluator = (*AveragePrecision)(nil)

// NewAveragePrecision counts relevant documents per query, preferring the
// judgments over the dataset labels. ds and judgments may be nil.
func NewAveragePrecision(ds dataset.RankingDataset, judgments *qrel.QuerySetJudgments) *AveragePrecision {
	e := &AveragePrecision{numRelevant: make(map[string]int)}
	if ds == nil {
		return e
	}

	for qid, ids := range ds.InstancesByQuery() {
		if q, ok := judgments.Get(qid); ok {
			e.numRelevant[qid] = q.NumRelevant()
			continue
		}
		n := 0
		for _, id := range ids {
			if ds.Gain(id) > 0 {
				n++
			}
		}
		e.numRelevant[qid] = n
	}

	log.Debug().Int("queries", len(e.numRelevant)).Msg("computed AP relevant counts")
	return e
}

func (e *AveragePrecision) Name() string { return "AP" }

func (e *AveragePrecision) Score(qid string, ranked []RankedInstance) float64 {
	numRelevant, seen := e.numRelevant[qid]
	if !seen {
		for _, ri := range ranked {
			if ri.IsRelevant() {
				numRelevant++
			}
		}
	}
	if numRelevant == 0 {
		return 0.0
	}

	var found int
	var sum float64
	for i, ri := range ranked {
		if ri.IsRelevant() {
			found++
			sum += float64(found) / float64(i+1)
		}
	}
	return sum / float64(numRelevant)
}
