// Package trecrun reads and writes TREC run files ("qid Q0 docid rank score system").
package trecrun

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fastrank/internal/dataset"
	"github.com/tensorplex-labs/fastrank/internal/evaluator"
	"github.com/tensorplex-labs/fastrank/internal/qrel"
	"github.com/tensorplex-labs/fastrank/internal/rankerr"
	"github.com/tensorplex-labs/fastrank/internal/utils/fileio"
	"github.com/tensorplex-labs/fastrank/pkg/typedarray"
)

// Entry is one line of a run file.
type Entry struct {
	QueryID string
	DocID   string
	Rank    int
	Score   float64
	System  string
}

// Write ranks every query of ds by scores and writes up to depth lines per
// query (0 means all), queries in sorted order. Instances without a
// document name are written by instance id.
func Write(w io.Writer, ds dataset.RankingDataset, scores []float64, system string, depth int) (int, error) {
	lists, err := evaluator.RankedLists(ds, scores)
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	written := 0
	for _, qid := range ds.Queries() {
		list := lists[qid]
		if depth > 0 && depth < len(list) {
			list = list[:depth]
		}
		for i, ri := range list {
			id := dataset.InstanceID(ri.ID)
			doc, ok := ds.DocumentName(id)
			if !ok {
				doc = id.String()
			}
			score := strconv.FormatFloat(ri.Score, 'g', -1, 64)
			if _, err := fmt.Fprintf(bw, "%s Q0 %s %d %s %s\n", qid, doc, i+1, score, system); err != nil {
				return written, fmt.Errorf("%w: write run: %w", rankerr.ErrIOFailure, err)
			}
			written++
		}
	}
	if err := bw.Flush(); err != nil {
		return written, fmt.Errorf("%w: flush run: %w", rankerr.ErrIOFailure, err)
	}
	return written, nil
}

// ReadFile loads a run file, decompressing by extension.
func ReadFile(path string) ([]Entry, error) {
	r, err := fileio.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return Read(r, path)
}

type docKey struct {
	qid, doc string
}

// Read parses run lines from r. Blank lines are skipped; any malformed line
// or a document listed twice for one query aborts the read with its source
// position.
func Read(r io.Reader, source string) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var entries []Entry
	firstLine := make(map[docKey]int)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 6 {
			return nil, rankerr.NewLineError(source, lineNo, rankerr.Invalid("expected 6 columns, got %d", len(fields)))
		}
		rank, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, rankerr.NewLineError(source, lineNo, rankerr.Invalid("bad rank %s", fields[3]))
		}
		score, err := strconv.ParseFloat(fields[4], 64)
		if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, rankerr.NewLineError(source, lineNo, rankerr.Invalid("bad score %s", fields[4]))
		}
		key := docKey{qid: fields[0], doc: fields[2]}
		if prev, dup := firstLine[key]; dup {
			return nil, rankerr.NewLineError(source, lineNo,
				rankerr.Invalid("document %s already ranked for query %s on line %d", key.doc, key.qid, prev))
		}
		firstLine[key] = lineNo
		entries = append(entries, Entry{
			QueryID: fields[0],
			DocID:   fields[2],
			Rank:    rank,
			Score:   score,
			System:  fields[5],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, rankerr.NewLineError(source, lineNo+1, fmt.Errorf("%w: %w", rankerr.ErrIOFailure, err))
	}

	log.Debug().Str("source", source).Int("entries", len(entries)).Msg("loaded run")
	return entries, nil
}

// ScoreFeature is the single feature column of a dataset built from a run.
const ScoreFeature dataset.FeatureID = 0

// Run is one system's entries. Each Run becomes one feature column.
type Run struct {
	Name    string
	Entries []Entry
}

// BuildDataset turns run entries into a one-feature dense dataset whose
// feature, named "score", is the run score.
func BuildDataset(entries []Entry, judgments *qrel.QuerySetJudgments) (*dataset.DenseDataset, error) {
	return BuildFeatureDataset([]Run{{Name: "score", Entries: entries}}, judgments)
}

// BuildFeatureDataset makes one instance per distinct (query, document)
// pair across runs, in first-seen order, and one feature per run named by
// Run.Name. A document a run did not retrieve takes that run's lowest score
// for the query, or 0 when the run has nothing for the query. Labels are the
// judged gains (0 when unjudged). A run listing a document twice for one
// query is rejected.
func BuildFeatureDataset(runs []Run, judgments *qrel.QuerySetJudgments) (*dataset.DenseDataset, error) {
	if len(runs) == 0 {
		return nil, rankerr.Invalid("no runs to build a dataset from")
	}
	d := len(runs)

	rows := make(map[docKey]int)
	var keys []docKey
	for _, run := range runs {
		for _, e := range run.Entries {
			key := docKey{qid: e.QueryID, doc: e.DocID}
			if _, ok := rows[key]; !ok {
				rows[key] = len(keys)
				keys = append(keys, key)
			}
		}
	}
	n := len(keys)

	xs := make([]float64, n*d)
	present := make([]bool, n*d)
	for f, run := range runs {
		lowest := make(map[string]float64)
		for _, e := range run.Entries {
			cell := rows[docKey{qid: e.QueryID, doc: e.DocID}]*d + f
			if present[cell] {
				return nil, rankerr.Invalid("run %s lists document %q twice for query %q", run.Name, e.DocID, e.QueryID)
			}
			present[cell] = true
			xs[cell] = e.Score
			if low, ok := lowest[e.QueryID]; !ok || e.Score < low {
				lowest[e.QueryID] = e.Score
			}
		}
		for row, key := range keys {
			if cell := row*d + f; !present[cell] {
				xs[cell] = lowest[key.qid]
			}
		}
	}

	ys := make([]float32, n)
	qids := make([]int64, n)
	docs := make([]string, n)
	numbers := make(map[string]int64)
	qidStrings := make(map[int64]string)
	unjudged := 0
	for row, key := range keys {
		num, ok := numbers[key.qid]
		if !ok {
			num = int64(len(numbers))
			numbers[key.qid] = num
			qidStrings[num] = key.qid
		}
		qids[row] = num
		docs[row] = key.doc
		if q, ok := judgments.Get(key.qid); ok && q.IsJudged(key.doc) {
			ys[row] = q.Gain(key.doc)
		} else {
			unjudged++
		}
	}

	names := make(map[dataset.FeatureID]string, d)
	for f, run := range runs {
		names[dataset.FeatureID(f)] = run.Name
	}

	log.Debug().
		Int("runs", d).
		Int("instances", n).
		Int("unjudged", unjudged).
		Msg("built run dataset")

	return dataset.NewDense(n, d,
		typedarray.Float64s(xs),
		typedarray.Float32s(ys),
		typedarray.Int64s(qids),
		dataset.WithQueryStrings(qidStrings),
		dataset.WithDocumentNames(docs),
		dataset.WithFeatureNames(names),
	)
}
