package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tensorplex-labs/fastrank/internal/config"
	"github.com/tensorplex-labs/fastrank/internal/dataset"
	"github.com/tensorplex-labs/fastrank/internal/evaluator"
	"github.com/tensorplex-labs/fastrank/internal/model"
	"github.com/tensorplex-labs/fastrank/internal/qrel"
	"github.com/tensorplex-labs/fastrank/internal/rankerr"
	"github.com/tensorplex-labs/fastrank/internal/trecrun"
	"github.com/tensorplex-labs/fastrank/internal/utils/logger"
)

type EvalReport struct {
	Model     string                        `json:"model"`
	Summaries []evaluator.Summary           `json:"summaries"`
	PerQuery  map[string]map[string]float64 `json:"per_query,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	b, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// loadRuns reads each run file as one feature, named by its system column
// or, for an empty run, by its file name.
func loadRuns(paths []string) ([]trecrun.Run, error) {
	if len(paths) == 0 {
		return nil, rankerr.Invalid("at least one --run is required")
	}
	runs := make([]trecrun.Run, 0, len(paths))
	for _, path := range paths {
		entries, err := trecrun.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load run: %w", err)
		}
		name := filepath.Base(path)
		if len(entries) > 0 {
			name = entries[0].System
		}
		runs = append(runs, trecrun.Run{Name: name, Entries: entries})
	}
	return runs, nil
}

// restrictQueries narrows ds to queries when any are given.
func restrictQueries(ds dataset.RankingDataset, queries []string) (dataset.RankingDataset, error) {
	if len(queries) == 0 {
		return ds, nil
	}
	return dataset.SampleQueries(ds, queries)
}

// chooseModel builds a linear model from weights (one per run) or else
// ranks by a single feature, the first run by default.
func chooseModel(ds dataset.RankingDataset, feature string, weights []float64) (dataset.Model, string, error) {
	if len(weights) > 0 {
		if feature != "" {
			return nil, "", rankerr.Invalid("--feature and --weights are mutually exclusive")
		}
		if len(weights) != ds.NDim() {
			return nil, "", &rankerr.ShapeError{Field: "weights", Expected: ds.NDim(), Actual: len(weights)}
		}
		return model.NewLinear(weights), fmt.Sprintf("linear%v", weights), nil
	}

	if feature == "" {
		feature = "0"
	}
	m, err := model.ForFeature(ds, feature)
	if err != nil {
		return nil, "", err
	}
	return m, ds.FeatureName(m.Feature), nil
}

type evalParams struct {
	qrelPath string
	runPaths []string
	measures []string
	queries  []string
	feature  string
	weights  []float64
	workers  int
	perQuery bool
}

func runEval(ctx context.Context, p evalParams, w io.Writer) error {
	judgments, err := qrel.ReadFile(p.qrelPath)
	if err != nil {
		return fmt.Errorf("load judgments: %w", err)
	}
	runs, err := loadRuns(p.runPaths)
	if err != nil {
		return err
	}
	full, err := trecrun.BuildFeatureDataset(runs, judgments)
	if err != nil {
		return fmt.Errorf("build dataset: %w", err)
	}
	ds, err := restrictQueries(full, p.queries)
	if err != nil {
		return err
	}
	scorer, modelName, err := chooseModel(ds, p.feature, p.weights)
	if err != nil {
		return err
	}

	report := EvalReport{Model: modelName}
	if p.perQuery {
		report.PerQuery = make(map[string]map[string]float64)
	}

	for _, measure := range p.measures {
		ev, err := evaluator.New(measure, ds, judgments)
		if err != nil {
			return err
		}
		byQuery, err := evaluator.EvaluateByQuery(ctx, ds, scorer, ev, evaluator.WithWorkers(p.workers))
		if err != nil {
			return fmt.Errorf("evaluate %s: %w", ev.Name(), err)
		}

		summary := evaluator.Summarize(ev.Name(), byQuery)
		report.Summaries = append(report.Summaries, summary)
		if p.perQuery {
			report.PerQuery[ev.Name()] = byQuery
		}
		logger.Sugar().Infow("Evaluated run", "model", modelName, "measure", summary.Measure, "mean", summary.Mean, "queries", summary.Queries)
	}

	return writeJSON(w, report)
}

func evalCmd(cfg func() *config.AppConfig) *cobra.Command {
	p := evalParams{}
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate TREC run files against relevance judgments",
		Long: `Evaluate one or more TREC run files against relevance judgments.

Each --run becomes one feature. By default the first run is evaluated as is;
--feature picks another run by system name or position, and --weights ranks
by a weighted sum of all runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(p.measures) == 0 {
				p.measures = cfg().Measures
			}
			if p.workers <= 0 {
				p.workers = cfg().EffectiveWorkers()
			}
			return runEval(cmd.Context(), p, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&p.qrelPath, "qrel", "", "relevance judgments file (.gz/.zst accepted)")
	cmd.Flags().StringSliceVar(&p.runPaths, "run", nil, "TREC run files (.gz/.zst accepted), one feature each")
	cmd.Flags().StringSliceVarP(&p.measures, "measure", "m", nil, "measures to compute, e.g. ndcg@10,ap,rr")
	cmd.Flags().StringSliceVarP(&p.queries, "query", "q", nil, "evaluate only these query ids")
	cmd.Flags().StringVar(&p.feature, "feature", "", "run to rank by, by system name or position")
	cmd.Flags().Float64SliceVar(&p.weights, "weights", nil, "one weight per run for a linear combination")
	cmd.Flags().IntVarP(&p.workers, "workers", "w", 0, "queries evaluated concurrently")
	cmd.Flags().BoolVar(&p.perQuery, "per-query", false, "include per-query scores")
	_ = cmd.MarkFlagRequired("qrel")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func runQrel(path string, queries []string, docs bool, w io.Writer) error {
	judgments, err := qrel.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load judgments: %w", err)
	}
	if len(queries) == 0 {
		queries = judgments.Queries()
	}

	summarize := judgments.Summary
	if docs {
		summarize = judgments.DocumentSummary
	}
	summaries := make([]qrel.QuerySummary, 0, len(queries))
	for _, q := range queries {
		s, err := summarize(q)
		if err != nil {
			return err
		}
		summaries = append(summaries, s)
	}
	log.Debug().Int("queries", len(summaries)).Msg("summarised judgments")
	return writeJSON(w, summaries)
}

func qrelCmd() *cobra.Command {
	var path string
	var queries []string
	var docs bool
	cmd := &cobra.Command{
		Use:   "qrel",
		Short: "Report judged and relevant counts per query",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQrel(path, queries, docs, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&path, "qrel", "", "relevance judgments file")
	cmd.Flags().StringSliceVarP(&queries, "query", "q", nil, "restrict to these query ids")
	cmd.Flags().BoolVar(&docs, "docs", false, "list every judged document with its gain")
	_ = cmd.MarkFlagRequired("qrel")
	return cmd
}

type rerankParams struct {
	runPath  string
	qrelPath string
	output   string
	system   string
	depth    int
}

// writeAndClose runs write against wc and reports the close error when the
// write itself succeeded.
func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) (err error) {
	defer func() {
		if cerr := wc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close output: %w", rankerr.ErrIOFailure, cerr)
		}
	}()
	return write(wc)
}

// runRerank rewrites a run with deterministic ranks. With judgments, score
// ties resolve pessimistically (least relevant first) as in evaluation.
func runRerank(p rerankParams, stdout io.Writer) error {
	entries, err := trecrun.ReadFile(p.runPath)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	var judgments *qrel.QuerySetJudgments
	if p.qrelPath != "" {
		if judgments, err = qrel.ReadFile(p.qrelPath); err != nil {
			return fmt.Errorf("load judgments: %w", err)
		}
	}
	ds, err := trecrun.BuildDataset(entries, judgments)
	if err != nil {
		return fmt.Errorf("build dataset: %w", err)
	}

	lines := 0
	write := func(w io.Writer) error {
		n, err := trecrun.Write(w, ds, ds.ScoreAll(model.SingleFeature{Feature: trecrun.ScoreFeature}), p.system, p.depth)
		lines = n
		return err
	}

	if p.output == "" || p.output == "-" {
		err = write(stdout)
	} else {
		f, createErr := os.Create(p.output)
		if createErr != nil {
			return fmt.Errorf("%w: create %s: %w", rankerr.ErrIOFailure, p.output, createErr)
		}
		err = writeAndClose(f, write)
	}
	if err != nil {
		return err
	}
	log.Info().Int("lines", lines).Str("system", p.system).Msg("wrote run")
	return nil
}

func rerankCmd(cfg func() *config.AppConfig) *cobra.Command {
	p := rerankParams{}
	cmd := &cobra.Command{
		Use:   "rerank",
		Short: "Rewrite a run file with deterministic ranks and a depth cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if p.system == "" {
				p.system = cfg().SystemName
			}
			if !cmd.Flags().Changed("depth") {
				p.depth = cfg().RunDepth
			}
			return runRerank(p, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&p.runPath, "run", "", "input TREC run file")
	cmd.Flags().StringVar(&p.qrelPath, "qrel", "", "optional judgments used for tie-breaking")
	cmd.Flags().StringVarP(&p.output, "output", "o", "-", "output path, - for stdout")
	cmd.Flags().StringVar(&p.system, "system", "", "system name written in the last column")
	cmd.Flags().IntVar(&p.depth, "depth", 0, "maximum lines per query, 0 for all")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

type QueryScore struct {
	Measure string  `json:"measure"`
	Depth   int     `json:"depth,omitempty"`
	Score   float64 `json:"score"`
}

func runScore(measure string, gains []float32, scores []float64, depth int, w io.Writer) error {
	v, err := evaluator.EvaluateQuery(measure, gains, scores, depth)
	if err != nil {
		return err
	}
	return writeJSON(w, QueryScore{Measure: measure, Depth: depth, Score: v})
}

func scoreCmd() *cobra.Command {
	var measure string
	var gains []float32
	var scores []float64
	var depth int
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Evaluate a single ranked list given parallel gains and scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(measure, gains, scores, depth, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&measure, "measure", "m", "ndcg", "measure, e.g. ndcg@10, ap or rr")
	cmd.Flags().Float32SliceVar(&gains, "gains", nil, "relevance gain of each document")
	cmd.Flags().Float64SliceVar(&scores, "scores", nil, "model score of each document")
	cmd.Flags().IntVar(&depth, "depth", 0, "cutoff overriding the measure's own depth")
	_ = cmd.MarkFlagRequired("gains")
	_ = cmd.MarkFlagRequired("scores")
	return cmd
}

func runDescribe(runPaths, features, queries []string, w io.Writer) error {
	runs, err := loadRuns(runPaths)
	if err != nil {
		return err
	}
	full, err := trecrun.BuildFeatureDataset(runs, nil)
	if err != nil {
		return fmt.Errorf("build dataset: %w", err)
	}
	ds, err := restrictQueries(full, queries)
	if err != nil {
		return err
	}
	if len(features) > 0 {
		fids := make([]dataset.FeatureID, 0, len(features))
		for _, f := range features {
			fid, err := ds.TryLookupFeature(f)
			if err != nil {
				return err
			}
			fids = append(fids, fid)
		}
		if ds, err = dataset.SampleFeatures(ds, fids); err != nil {
			return err
		}
	}
	return writeJSON(w, dataset.Describe(ds))
}

func describeCmd() *cobra.Command {
	var runPaths, features, queries []string
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Summarize the score distribution of each run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(runPaths, features, queries, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringSliceVar(&runPaths, "run", nil, "TREC run files, one feature each")
	cmd.Flags().StringSliceVar(&features, "feature", nil, "only these runs, by system name or position")
	cmd.Flags().StringSliceVarP(&queries, "query", "q", nil, "only these query ids")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fastrank %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		},
	}
}
