// Package qrel holds externally supplied relevance judgments, grouped by query then document.
package qrel

import (
	"math"
	"sort"

	"github.com/tensorplex-labs/fastrank/internal/rankerr"
)

// QueryJudgments maps document ids to gains for one query. It is immutable
// and may be shared by any number of readers.
type QueryJudgments struct {
	docToGain map[string]float32
}

func newQueryJudgments(docToGain map[string]float32) *QueryJudgments {
	return &QueryJudgments{docToGain: docToGain}
}

func (q *QueryJudgments) NumJudged() int {
	return len(q.docToGain)
}

// NumRelevant counts judged documents with a positive gain.
func (q *QueryJudgments) NumRelevant() int {
	n := 0
	for _, g := range q.docToGain {
		if g > 0 {
			n++
		}
	}
	return n
}

// Gain returns the judged gain of doc, or 0 if doc was never judged.
func (q *QueryJudgments) Gain(doc string) float32 {
	return q.docToGain[doc]
}

// IsJudged reports whether doc has an explicit judgment.
func (q *QueryJudgments) IsJudged(doc string) bool {
	_, ok := q.docToGain[doc]
	return ok
}

// GainVector returns every judged gain, sorted descending.
func (q *QueryJudgments) GainVector() []float32 {
	out := make([]float32, 0, len(q.docToGain))
	for _, g := range q.docToGain {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// Documents returns the judged document ids, sorted.
func (q *QueryJudgments) Documents() []string {
	out := make([]string, 0, len(q.docToGain))
	for d := range q.docToGain {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// QuerySetJudgments maps query ids to their judgments. Built once, never mutated.
type QuerySetJudgments struct {
	queries map[string]*QueryJudgments
}

// DocGain is one judged document of a query.
type DocGain struct {
	Doc  string  `json:"doc"`
	Gain float32 `json:"gain"`
}

// QuerySummary is the per-query view reported by the qrel command. Docs is
// only filled by DocumentSummary.
type QuerySummary struct {
	Query    string    `json:"query"`
	Judged   int       `json:"judged"`
	Relevant int       `json:"relevant"`
	Docs     []DocGain `json:"docs,omitempty"`
}

// FromMap builds judgments from an already decoded query -> doc -> gain map.
// NaN or infinite gains fail the whole build. The input maps are copied.
func FromMap(m map[string]map[string]float32) (*QuerySetJudgments, error) {
	queries := make(map[string]*QueryJudgments, len(m))
	for qid, docs := range m {
		docToGain := make(map[string]float32, len(docs))
		for doc, g := range docs {
			if math.IsNaN(float64(g)) || math.IsInf(float64(g), 0) {
				return nil, rankerr.Invalid("non-finite relevance judgment for query %q doc %q", qid, doc)
			}
			docToGain[doc] = g
		}
		queries[qid] = newQueryJudgments(docToGain)
	}
	return &QuerySetJudgments{queries: queries}, nil
}

// Get returns the judgments for qid. A nil receiver has no judgments.
func (s *QuerySetJudgments) Get(qid string) (*QueryJudgments, bool) {
	if s == nil {
		return nil, false
	}
	q, ok := s.queries[qid]
	return q, ok
}

func (s *QuerySetJudgments) Len() int {
	if s == nil {
		return 0
	}
	return len(s.queries)
}

// Queries returns the judged query ids, sorted.
func (s *QuerySetJudgments) Queries() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.queries))
	for q := range s.queries {
		out = append(out, q)
	}
	sort.Strings(out)
	return out
}

// Summary reports judged and relevant counts for qid.
func (s *QuerySetJudgments) Summary(qid string) (QuerySummary, error) {
	q, ok := s.Get(qid)
	if !ok {
		return QuerySummary{}, rankerr.NotFound("query %q has no judgments", qid)
	}
	return QuerySummary{Query: qid, Judged: q.NumJudged(), Relevant: q.NumRelevant()}, nil
}

// DocumentSummary is Summary plus every judged document and its gain, in
// document id order.
func (s *QuerySetJudgments) DocumentSummary(qid string) (QuerySummary, error) {
	summary, err := s.Summary(qid)
	if err != nil {
		return summary, err
	}
	q, _ := s.Get(qid)
	for _, doc := range q.Documents() {
		summary.Docs = append(summary.Docs, DocGain{Doc: doc, Gain: q.Gain(doc)})
	}
	return summary, nil
}
