package evaluator

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary is the mean of one measure across queries (MRR, MAP, mean NDCG).
type Summary struct {
	Measure string  `json:"measure"`
	Mean    float64 `json:"mean"`
	Queries int     `json:"queries"`
}

// Summarize averages byQuery. Values are summed in query id order so the
// mean is reproducible.
func Summarize(measure string, byQuery map[string]float64) Summary {
	if len(byQuery) == 0 {
		return Summary{Measure: measure}
	}
	qids := make([]string, 0, len(byQuery))
	for qid := range byQuery {
		qids = append(qids, qid)
	}
	sort.Strings(qids)

	values := make([]float64, len(qids))
	for i, qid := range qids {
		values[i] = byQuery[qid]
	}
	return Summary{
		Measure: measure,
		Mean:    stat.Mean(values, nil),
		Queries: len(values),
	}
}
