package evaluator

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorplex-labs/fastrank/internal/dataset"
	"github.com/tensorplex-labs/fastrank/internal/model"
	"github.com/tensorplex-labs/fastrank/internal/qrel"
	"github.com/tensorplex-labs/fastrank/internal/rankerr"
	"github.com/tensorplex-labs/fastrank/pkg/typedarray"
)

func ranked(gains ...float32) []RankedInstance {
	out := make([]RankedInstance, len(gains))
	for i, g := range gains {
		out[i] = RankedInstance{Score: float64(len(gains) - i), Gain: g, ID: uint32(i)}
	}
	return out
}

// Two queries of three instances; query 1 has gains 0,1,2 and scores
// 3,2,1 on its only feature, query 2 has no relevant documents.
func newEvalDataset(t *testing.T) *dataset.DenseDataset {
	t.Helper()
	ds, err := dataset.NewDense(6, 1,
		typedarray.Float64s([]float64{3, 2, 1, 5, 4, 6}),
		typedarray.Float32s([]float32{0, 1, 2, 0, 0, 0}),
		typedarray.Int32s([]int32{1, 1, 1, 2, 2, 2}),
	)
	require.NoError(t, err)
	return ds
}

var (
	byFeature  = model.SingleFeature{Feature: 0}
	reversed   = model.SingleFeature{Feature: 0, Negate: true}
	invLog2of3 = 1 / math.Log2(3)
)

func TestCompareOrdering(t *testing.T) {
	list := []RankedInstance{
		{Score: 1.0, Gain: 0.0, ID: 12},
		{Score: 3.0, Gain: 1.0, ID: 10},
		{Score: 3.0, Gain: 0.0, ID: 11},
	}
	Sort(list)

	ids := make([]uint32, len(list))
	for i, ri := range list {
		ids[i] = ri.ID
	}
	assert.Equal(t, []uint32{11, 10, 12}, ids)

	a := RankedInstance{Score: 2, Gain: 1, ID: 4}
	b := RankedInstance{Score: 2, Gain: 1, ID: 5}
	assert.Equal(t, -1, Compare(a, b))
	assert.Equal(t, 1, Compare(b, a))
	assert.Equal(t, 0, Compare(a, a))
}

func TestNewRankedInstanceRejectsNaN(t *testing.T) {
	_, err := NewRankedInstance(math.NaN(), 1, 0)
	assert.ErrorIs(t, err, rankerr.ErrInvalidValue)

	_, err = NewRankedInstance(1, float32(math.NaN()), 0)
	assert.ErrorIs(t, err, rankerr.ErrInvalidValue)

	ri, err := NewRankedInstance(math.Inf(-1), 0, 3)
	require.NoError(t, err)
	assert.False(t, ri.IsRelevant())
}

func TestReciprocalRank(t *testing.T) {
	rr := ReciprocalRank{}
	assert.Equal(t, "RR", rr.Name())
	assert.InDelta(t, 1.0/3.0, rr.Score("q", ranked(0, 0, 1)), 1e-15)
	assert.Equal(t, 1.0, rr.Score("q", ranked(2, 0, 1)))
	assert.Equal(t, 0.0, rr.Score("q", ranked(0, 0, 0)))
	assert.Equal(t, 0.0, rr.Score("q", nil))
}

func TestAveragePrecision(t *testing.T) {
	ap := NewAveragePrecision(nil, nil)
	assert.Equal(t, "AP", ap.Name())

	// Relevant at ranks 1 and 3 of 3.
	assert.InDelta(t, (1.0/1.0+2.0/3.0)/2.0, ap.Score("q", ranked(1, 0, 1)), 1e-15)
	assert.Equal(t, 0.0, ap.Score("q", ranked(0, 0)))
}

func TestAveragePrecisionUsesDatasetCounts(t *testing.T) {
	ds := newEvalDataset(t)
	ap := NewAveragePrecision(ds, nil)

	lists, err := RankedLists(ds, ds.ScoreAll(byFeature))
	require.NoError(t, err)
	assert.InDelta(t, (1.0/2.0+2.0/3.0)/2.0, ap.Score("1", lists["1"]), 1e-15)
	assert.Equal(t, 0.0, ap.Score("2", lists["2"]))
}

func TestAveragePrecisionPrefersJudgments(t *testing.T) {
	ds := newEvalDataset(t)
	judgments, err := qrel.FromMap(map[string]map[string]float32{
		"1": {"a": 2, "b": 1, "c": 1, "d": 0},
	})
	require.NoError(t, err)

	ap := NewAveragePrecision(ds, judgments)
	lists, err := RankedLists(ds, ds.ScoreAll(reversed))
	require.NoError(t, err)
	// Both dataset hits are at the top but three documents are relevant overall.
	assert.InDelta(t, 2.0/3.0, ap.Score("1", lists["1"]), 1e-15)
}

func TestDCG(t *testing.T) {
	assert.Equal(t, 0.0, DCG(nil, 0))
	assert.InDelta(t, 3+invLog2of3, DCG([]float32{2, 1}, 0), 1e-15)
	assert.Equal(t, 3.0, DCG([]float32{2, 1}, 1))
	assert.InDelta(t, 3+invLog2of3, DCG([]float32{2, 1}, 10), 1e-15)
}

func TestNDCGPerfectRankingIsExactlyOne(t *testing.T) {
	ds := newEvalDataset(t)
	ndcg := NewNDCG(3, ds, nil)
	assert.Equal(t, "NDCG@3", ndcg.Name())
	assert.Equal(t, 3, ndcg.Depth())

	lists, err := RankedLists(ds, ds.ScoreAll(reversed))
	require.NoError(t, err)
	assert.Equal(t, 1.0, ndcg.Score("1", lists["1"]))
}

func TestNDCGImperfectRanking(t *testing.T) {
	ds := newEvalDataset(t)
	ndcg := NewNDCG(0, ds, nil)
	assert.Equal(t, "NDCG", ndcg.Name())

	lists, err := RankedLists(ds, ds.ScoreAll(byFeature))
	require.NoError(t, err)

	// Positive gains appear in order [1, 2]; the ideal order is [2, 1].
	want := (1 + 3*invLog2of3) / (3 + invLog2of3)
	assert.InDelta(t, want, ndcg.Score("1", lists["1"]), 1e-12)

	at1 := NewNDCG(1, ds, nil)
	assert.InDelta(t, 1.0/3.0, at1.Score("1", lists["1"]), 1e-15)
}

func TestNDCGWithoutRelevantDocumentsIsZero(t *testing.T) {
	ds := newEvalDataset(t)
	ndcg := NewNDCG(5, ds, nil)

	lists, err := RankedLists(ds, ds.ScoreAll(byFeature))
	require.NoError(t, err)
	score := ndcg.Score("2", lists["2"])
	assert.Equal(t, 0.0, score)
	assert.False(t, math.IsNaN(score))

	// Unknown query with nothing relevant in its list.
	assert.Equal(t, 0.0, ndcg.Score("unseen", ranked(0, 0)))
}

func TestNDCGJudgmentsSupplyIdealVector(t *testing.T) {
	ds := newEvalDataset(t)
	judgments, err := qrel.FromMap(map[string]map[string]float32{
		"1": {"a": 2, "b": 1, "c": 1},
		"2": {"x": 0},
	})
	require.NoError(t, err)

	ndcg := NewNDCG(0, ds, judgments)
	lists, err := RankedLists(ds, ds.ScoreAll(reversed))
	require.NoError(t, err)

	want := (3 + invLog2of3) / (3 + invLog2of3 + 1.0/2.0)
	assert.InDelta(t, want, ndcg.Score("1", lists["1"]), 1e-12)
	assert.Equal(t, 0.0, ndcg.Score("2", lists["2"]))
}

func TestNDCGUnseenQueryNormalizesItself(t *testing.T) {
	ndcg := NewNDCG(0, nil, nil)
	// [1, 2] against ideal [2, 1].
	want := (1 + 3*invLog2of3) / (3 + invLog2of3)
	assert.InDelta(t, want, ndcg.Score("q", ranked(0, 1, 2)), 1e-12)
}

func TestPessimisticTies(t *testing.T) {
	ds := newEvalDataset(t)
	flat := dataset.ModelFunc(func(dataset.FeatureRead) float64 { return 1 })

	lists, err := RankedLists(ds, ds.ScoreAll(flat))
	require.NoError(t, err)
	assert.Equal(t, 0.5, ReciprocalRank{}.Score("1", lists["1"]))
	assert.Less(t, NewNDCG(0, ds, nil).Score("1", lists["1"]), 1.0)
}

func TestParseMeasure(t *testing.T) {
	cases := map[string]Measure{
		"rr":         {Kind: MeasureRR},
		"MRR":        {Kind: MeasureRR},
		"recip_rank": {Kind: MeasureRR},
		"ap":         {Kind: MeasureAP},
		"map":        {Kind: MeasureAP},
		"ndcg":       {Kind: MeasureNDCG},
		" NDCG@10 ":  {Kind: MeasureNDCG, Depth: 10},
	}
	for in, want := range cases {
		got, err := ParseMeasure(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "p@10", "ndcg@0", "ndcg@x", "ap@5"} {
		_, err := ParseMeasure(bad)
		assert.ErrorIs(t, err, rankerr.ErrInvalidValue, bad)
	}
}

func TestNew(t *testing.T) {
	ds := newEvalDataset(t)
	for measure, name := range map[string]string{"mrr": "RR", "map": "AP", "ndcg@5": "NDCG@5"} {
		ev, err := New(measure, ds, nil)
		require.NoError(t, err)
		assert.Equal(t, name, ev.Name())
	}
	_, err := New("bleu", ds, nil)
	assert.Error(t, err)
}

func TestRankedListsErrors(t *testing.T) {
	ds := newEvalDataset(t)

	_, err := RankedLists(ds, []float64{1, 2})
	assert.ErrorIs(t, err, rankerr.ErrShapeMismatch)

	nan := dataset.ModelFunc(func(dataset.FeatureRead) float64 { return math.NaN() })
	_, err = RankedLists(ds, ds.ScoreAll(nan))
	assert.ErrorIs(t, err, rankerr.ErrInvalidValue)
}

func TestEvaluateByQuery(t *testing.T) {
	ds := newEvalDataset(t)

	rr, err := EvaluateByQuery(context.Background(), ds, byFeature, ReciprocalRank{}, WithWorkers(2))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"1": 0.5, "2": 0}, rr)

	ndcg, err := EvaluateByQuery(context.Background(), ds, reversed, NewNDCG(0, ds, nil))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"1": 1, "2": 0}, ndcg)

	summary := Summarize("NDCG", ndcg)
	assert.Equal(t, Summary{Measure: "NDCG", Mean: 0.5, Queries: 2}, summary)
}

func TestEvaluateByQuery_Cancelled(t *testing.T) {
	ds := newEvalDataset(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := EvaluateByQuery(ctx, ds, byFeature, ReciprocalRank{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluateByQuery_ConcurrentMatchesSerial(t *testing.T) {
	const queries, perQuery = 200, 7
	n := queries * perQuery
	xs := make([]float32, n)
	ys := make([]int32, n)
	qids := make([]int64, n)
	for i := range n {
		xs[i] = float32((i * 7919) % 101)
		ys[i] = int32((i * 31) % 3)
		qids[i] = int64(i % queries)
	}
	ds, err := dataset.NewDense(n, 1, typedarray.Float32s(xs), typedarray.Int32s(ys), typedarray.Int64s(qids))
	require.NoError(t, err)

	for _, measure := range []string{"rr", "ap", "ndcg@5"} {
		ev, err := New(measure, ds, nil)
		require.NoError(t, err)
		serial, err := EvaluateByQuery(context.Background(), ds, byFeature, ev, WithWorkers(1))
		require.NoError(t, err)
		parallel, err := EvaluateByQuery(context.Background(), ds, byFeature, ev, WithWorkers(16))
		require.NoError(t, err)
		assert.Equal(t, serial, parallel, measure)
		assert.Len(t, parallel, queries)
	}
}

func TestEvaluateRankedLists(t *testing.T) {
	lists := map[string][]RankedInstance{"a": ranked(0, 1), "b": ranked(1)}
	got, err := EvaluateRankedLists(context.Background(), lists, ReciprocalRank{})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 0.5, "b": 1}, got)
}

func TestEvaluateQuery(t *testing.T) {
	gains := []float32{1, 0, 1}
	scores := []float64{3, 2, 1}

	ap, err := EvaluateQuery("ap", gains, scores, 0)
	require.NoError(t, err)
	assert.InDelta(t, (1.0+2.0/3.0)/2.0, ap, 1e-15)

	rr, err := EvaluateQuery("rr", gains, []float64{1, 2, 3}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rr)

	ndcg, err := EvaluateQuery("ndcg", gains, scores, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, ndcg)

	_, err = EvaluateQuery("ap", gains, scores[:2], 0)
	assert.ErrorIs(t, err, rankerr.ErrShapeMismatch)

	_, err = EvaluateQuery("ap", gains, []float64{1, math.NaN(), 2}, 0)
	assert.ErrorIs(t, err, rankerr.ErrInvalidValue)

	_, err = EvaluateQuery("nope", gains, scores, 0)
	assert.True(t, strings.Contains(err.Error(), "unknown measure"))
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, Summary{Measure: "AP"}, Summarize("AP", nil))
}

func BenchmarkEvaluateByQuery(b *testing.B) {
	const n = 10000
	xs := make([]float64, n)
	ys := make([]float32, n)
	qids := make([]int32, n)
	for i := range n {
		xs[i] = float64((i * 7919) % 1009)
		ys[i] = float32(i % 4)
		qids[i] = int32(i / 50)
	}
	ds, err := dataset.NewDense(n, 1, typedarray.Float64s(xs), typedarray.Float32s(ys), typedarray.Int32s(qids))
	if err != nil {
		b.Fatal(err)
	}
	ev := NewNDCG(10, ds, nil)

	for b.Loop() {
		_, _ = EvaluateByQuery(context.Background(), ds, byFeature, ev)
	}
}
