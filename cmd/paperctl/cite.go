package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-analysis-service/internal/app"
	"github.com/helixir/paper-analysis-service/internal/citation"
	"github.com/helixir/paper-analysis-service/internal/domain"
)

var citeFormats = []string{"apa", "mla", "chicago", "bibtex"}

var citeCmd = &cobra.Command{
	Use:   "cite [arxiv-ids...]",
	Short: "Print citations for papers",
	Long: `Cite resolves paper metadata and prints citations in APA, MLA, Chicago
or BibTeX style. No language model is involved.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCite,
}

func init() {
	citeCmd.Flags().StringP("format", "f", "all", "citation style: "+strings.Join(citeFormats, ", ")+" or all")
	citeCmd.Flags().Bool("json", false, "print citations as JSON")

	rootCmd.AddCommand(citeCmd)
}

func runCite(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	asJSON, _ := cmd.Flags().GetBool("json")

	format = strings.ToLower(format)
	if format != "all" && !slices.Contains(citeFormats, format) {
		return fmt.Errorf("unknown citation format %q", format)
	}

	ids := make([]domain.PaperID, 0, len(args))
	for _, raw := range args {
		id, err := domain.ParsePaperID(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", raw, err)
		}
		ids = append(ids, id)
	}

	chain := app.NewMetadataChain(cfg.PaperSources, nil, logger)
	out := cmd.OutOrStdout()
	collected := make(map[string]citeJSON, len(ids))

	for i, id := range ids {
		paper, err := chain.Fetch(cmd.Context(), id)
		if err != nil {
			return err
		}
		if paper == nil {
			return fmt.Errorf("%s: paper not found", id)
		}

		c := citation.Generate(*paper)
		if asJSON {
			collected[id.String()] = citationJSON(c)
			continue
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		writeCitation(out, c, format)
	}

	if asJSON {
		return writeJSON(out, collected)
	}
	return nil
}

func writeCitation(w io.Writer, c domain.Citation, format string) {
	styles := map[string]string{
		"apa":     c.APA,
		"mla":     c.MLA,
		"chicago": c.Chicago,
		"bibtex":  c.BibTeX,
	}
	if format != "all" {
		fmt.Fprintln(w, styles[format])
		return
	}
	for _, name := range citeFormats {
		fmt.Fprintf(w, "[%s]\n%s\n", strings.ToUpper(name), styles[name])
	}
}
