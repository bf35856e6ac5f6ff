package qrel

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fastrank/internal/rankerr"
	"github.com/tensorplex-labs/fastrank/internal/utils/fileio"
)

// ReadFile loads a TREC qrel file: "qid iter docid relevance" per line.
// Compressed files are handled by extension. Any bad line aborts the load.
func ReadFile(path string) (*QuerySetJudgments, error) {
	r, err := fileio.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return Read(r, path)
}

// Read parses qrel lines from r. source names the input in error messages.
// Blank lines are skipped. When a (query, document) pair repeats, the later
// line wins.
func Read(r io.Reader, source string) (*QuerySetJudgments, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	byQuery := make(map[string]map[string]float32)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 4 {
			return nil, rankerr.NewLineError(source, lineNo, rankerr.Invalid("expected 4 columns, got %d", len(fields)))
		}

		qid, doc, rel := fields[0], fields[2], fields[3]
		gain, err := strconv.ParseFloat(rel, 32)
		if err != nil {
			return nil, rankerr.NewLineError(source, lineNo, rankerr.Invalid("invalid relevance judgment %s", rel))
		}
		if math.IsNaN(gain) || math.IsInf(gain, 0) {
			return nil, rankerr.NewLineError(source, lineNo, rankerr.Invalid("non-finite relevance judgment %s", rel))
		}

		docs, ok := byQuery[qid]
		if !ok {
			docs = make(map[string]float32)
			byQuery[qid] = docs
		}
		docs[doc] = float32(gain)
	}
	if err := scanner.Err(); err != nil {
		return nil, rankerr.NewLineError(source, lineNo+1, fmt.Errorf("%w: %w", rankerr.ErrIOFailure, err))
	}

	judgments, err := FromMap(byQuery)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	log.Debug().Str("source", source).Int("lines", lineNo).Int("queries", judgments.Len()).Msg("loaded judgments")
	return judgments, nil
}
