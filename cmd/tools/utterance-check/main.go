// cmd/tools/utterance-check/main.go
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ledger-assistant/internal/assistant/candidates"
	"ledger-assistant/internal/assistant/classifier"
	"ledger-assistant/internal/assistant/normalize"
	"ledger-assistant/internal/models"
)

// CheckResult is printed once per utterance.
type CheckResult struct {
	Utterance  string        `json:"utterance"`
	Normalized string        `json:"normalized,omitempty"`
	Candidates []string      `json:"candidates,omitempty"`
	Intent     models.Intent `json:"intent"`
}

type checkFlags struct {
	threshold  float64
	normalized bool
	queries    int
	pretty     bool
	table      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f checkFlags
	cmd := &cobra.Command{
		Use:   "utterance-check [utterance...]",
		Short: "Classify utterances offline and print the extracted intent",
		Long: `Runs the intent classifier without any backing services.
Utterances come from the arguments, or one per line on stdin when no
arguments are given.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var lines []string
			if len(args) > 0 {
				lines = []string{strings.Join(args, " ")}
			} else {
				var err error
				if lines, err = readLines(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			}
			results := check(classifier.New(classifier.WithThreshold(f.threshold)), lines, f)
			if f.table {
				renderTable(cmd.OutOrStdout(), results)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), results, f.pretty)
		},
	}
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0.5, "minimum confidence before an intent is reported as unknown")
	cmd.Flags().BoolVar(&f.normalized, "normalized", false, "include the normalized text")
	cmd.Flags().IntVar(&f.queries, "queries", 0, "also list up to N catalog query candidates for event phrases")
	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "indent JSON output")
	cmd.Flags().BoolVar(&f.table, "table", false, "print a summary table instead of JSON")
	return cmd
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func check(cls *classifier.Classifier, lines []string, f checkFlags) []CheckResult {
	var out []CheckResult
	for _, text := range lines {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		res := CheckResult{Utterance: text, Intent: cls.Classify(text)}
		if f.normalized {
			res.Normalized = normalize.Normalize(text).Normalized
		}
		if f.queries > 0 && res.Intent.Transaction != nil && res.Intent.Transaction.EventQuery != "" {
			res.Candidates = candidates.Build(res.Intent.Transaction.EventQuery, f.queries)
		}
		out = append(out, res)
	}
	return out
}

func printJSON(w io.Writer, results []CheckResult, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
	}
	return nil
}

func renderTable(w io.Writer, results []CheckResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Utterance", "Intent", "Confidence", "Missing", "Candidates"})
	for _, res := range results {
		missing := make([]string, 0, len(res.Intent.MissingFields))
		for _, m := range res.Intent.MissingFields {
			missing = append(missing, string(m))
		}
		tw.AppendRow(table.Row{
			res.Utterance,
			res.Intent.Kind,
			fmt.Sprintf("%.2f", res.Intent.Confidence),
			strings.Join(missing, ", "),
			strings.Join(res.Candidates, " | "),
		})
	}
	tw.Render()
}
