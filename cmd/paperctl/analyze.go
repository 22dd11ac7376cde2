package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-analysis-service/internal/app"
	"github.com/helixir/paper-analysis-service/internal/domain"
)

const (
	defaultAnalyzeTimeout = 10 * time.Minute
	defaultPollInterval   = 250 * time.Millisecond
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [arxiv-ids...]",
	Short: "Run the analysis pipeline for one or more papers",
	Long: `Analyze submits each identifier to an in-process pipeline, reports stage
changes on stderr, and prints the finished analyses on stdout. Identifiers
may be new-style (2301.12345, optionally versioned) or old-style
(hep-th/9901001).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().Duration("timeout", defaultAnalyzeTimeout, "maximum time to wait for all analyses")
	analyzeCmd.Flags().Bool("json", false, "print analyses as JSON")

	rootCmd.AddCommand(analyzeCmd)
}

// jobLookup is the part of the orchestrator the wait loop needs.
type jobLookup interface {
	Job(token string) (domain.Job, bool)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	svc, err := app.New(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	stderr := cmd.ErrOrStderr()
	var tokens []string
	failed := 0
	for _, raw := range args {
		token, err := svc.Orchestrator.Submit(ctx, raw)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", raw, err)
			failed++
			continue
		}
		tokens = append(tokens, token)
	}

	jobs, err := waitForJobs(ctx, svc.Orchestrator, tokens, defaultPollInterval, stderr)
	if err != nil {
		return fmt.Errorf("waiting for analyses: %w", err)
	}

	var results []analysisOutput
	for _, job := range jobs {
		if job.Stage != domain.StageCompleted {
			fmt.Fprintf(stderr, "%s: analysis failed: %s\n", job.PaperID, job.Error)
			failed++
			continue
		}
		analysis, ok := svc.Orchestrator.GetAnalysis(ctx, job.PaperID)
		if !ok {
			fmt.Fprintf(stderr, "%s: analysis missing from store\n", job.PaperID)
			failed++
			continue
		}
		paper, _ := svc.Orchestrator.Paper(ctx, job.PaperID)
		results = append(results, newAnalysisOutput(paper, analysis))
	}

	out := cmd.OutOrStdout()
	if asJSON {
		if err := writeJSON(out, results); err != nil {
			return err
		}
	} else {
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(out)
			}
			writeAnalysisText(out, r)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d paper(s) failed", failed, len(args))
	}
	return nil
}

// waitForJobs polls until every job is terminal, writing each stage change
// to progress. Jobs are returned in token order.
func waitForJobs(ctx context.Context, lookup jobLookup, tokens []string, interval time.Duration, progress io.Writer) ([]domain.Job, error) {
	last := make(map[string]domain.Stage, len(tokens))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		jobs := make([]domain.Job, 0, len(tokens))
		done := true
		for _, token := range tokens {
			job, ok := lookup.Job(token)
			if !ok {
				return nil, fmt.Errorf("job %s disappeared", token)
			}
			if job.Stage != last[token] {
				last[token] = job.Stage
				fmt.Fprintf(progress, "%-16s %3d%%  %s\n", job.PaperID, job.Stage.Progress(), job.Stage.Description())
			}
			if !job.Stage.IsTerminal() {
				done = false
			}
			jobs = append(jobs, job)
		}
		if done {
			return jobs, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, errors.New("timed out")
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

type analysisOutput struct {
	ArxivID          string   `json:"arxivId"`
	Title            string   `json:"title,omitempty"`
	Authors          string   `json:"authors,omitempty"`
	Difficulty       string   `json:"difficulty"`
	ReadingMinutes   int      `json:"readingMinutes"`
	AbstractSummary  string   `json:"abstractSummary"`
	FullSummary      string   `json:"fullSummary"`
	Citations        citeJSON `json:"citations"`
	AnalyzedAt       string   `json:"analyzedAt"`
	DifficultyDetail string   `json:"difficultyDescription"`
}

type citeJSON struct {
	APA     string `json:"apa"`
	MLA     string `json:"mla"`
	Chicago string `json:"chicago"`
	BibTeX  string `json:"bibtex"`
}

func newAnalysisOutput(paper *domain.Paper, a *domain.Analysis) analysisOutput {
	out := analysisOutput{
		ArxivID:          a.PaperID.String(),
		Difficulty:       string(a.Difficulty),
		DifficultyDetail: a.Difficulty.Description(),
		ReadingMinutes:   a.ReadingMinutes,
		AbstractSummary:  a.AbstractSummary,
		FullSummary:      a.FullSummary,
		Citations:        citationJSON(a.Citation),
		AnalyzedAt:       a.AnalyzedAt.UTC().Format(time.RFC3339),
	}
	if paper != nil {
		out.Title = paper.Title
		out.Authors = paper.Authors
	}
	return out
}

func citationJSON(c domain.Citation) citeJSON {
	return citeJSON{APA: c.APA, MLA: c.MLA, Chicago: c.Chicago, BibTeX: c.BibTeX}
}

func writeAnalysisText(w io.Writer, r analysisOutput) {
	fmt.Fprintf(w, "# %s\n", r.ArxivID)
	if r.Title != "" {
		fmt.Fprintf(w, "Title:      %s\n", r.Title)
	}
	if r.Authors != "" {
		fmt.Fprintf(w, "Authors:    %s\n", r.Authors)
	}
	fmt.Fprintf(w, "Difficulty: %s (%s)\n", r.Difficulty, r.DifficultyDetail)
	fmt.Fprintf(w, "Reading:    %d min\n\n", r.ReadingMinutes)
	fmt.Fprintf(w, "## Abstract summary\n%s\n\n", r.AbstractSummary)
	fmt.Fprintf(w, "## Full summary\n%s\n\n", r.FullSummary)
	fmt.Fprintf(w, "## Citation (APA)\n%s\n", r.Citations.APA)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
