package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yashubustudio/intentclassifier/intent"
)

// demoUtterances is the sample conversation used by batch --demo.
var demoUtterances = []string{
	"Can I see the menu please?",
	"Book table for tonight and check menu",
	"What cuisine do you serve?",
	"I'd like to make a reservation",
	"What cards do you accept?",
}

type batchOptions struct {
	inputPath  string
	outputPath string
	outputDir  string
	demo       bool
	stdout     bool
}

func newBatchCmd(c *cli) *cobra.Command {
	var opts batchOptions
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Classify a text, CSV or TSV file and write the results as CSV",
		Long: `Reads one utterance per line from a text file, or the text column of a CSV/TSV
file (header names: text, utterance, message, query). An optional session column
keeps conversations apart; rows without one share the --session conversation.
All utterances of a session go to the neural service in a single request.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, c, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.inputPath, "input", "", "text/CSV/TSV file containing utterances")
	f.StringVar(&opts.outputPath, "output", "", "CSV file to write results (default uses --output-dir/result_*.csv)")
	f.StringVar(&opts.outputDir, "output-dir", "csv", "directory where result CSVs are written when --output is omitted")
	f.BoolVar(&opts.demo, "demo", false, "classify the built-in sample conversation instead of --input")
	f.BoolVar(&opts.stdout, "stdout", false, "print a summary to STDOUT instead of writing a CSV")
	return cmd
}

func runBatch(cmd *cobra.Command, c *cli, opts batchOptions) error {
	utterances, err := loadUtterances(opts)
	if err != nil {
		return err
	}
	if len(utterances) == 0 {
		return errors.New("input file does not contain any texts")
	}

	clf, err := c.classifier()
	if err != nil {
		return err
	}
	defer clf.Close()

	started := time.Now()
	results := classifyUtterances(cmd.Context(), clf, c.session, utterances)
	c.logger.Info("batch classified",
		zap.Int("utterances", len(results)),
		zap.Int("sessions", len(clf.Sessions())),
		zap.Duration("elapsed", time.Since(started)),
	)

	out := cmd.OutOrStdout()
	if opts.stdout {
		for i, res := range results {
			printResult(out, i+1, res, 3)
		}
		return nil
	}

	path, err := resolveOutputPath(opts.outputPath, opts.outputDir)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer f.Close()
	if err := intent.WriteResultsCSV(f, results, clf.Threshold()); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	fmt.Fprintf(out, "wrote %d results to %s\n", len(results), path)
	return nil
}

func loadUtterances(opts batchOptions) ([]intent.Utterance, error) {
	if opts.demo {
		out := make([]intent.Utterance, len(demoUtterances))
		for i, t := range demoUtterances {
			out[i] = intent.Utterance{Text: t}
		}
		return out, nil
	}
	path := strings.TrimSpace(opts.inputPath)
	if path == "" {
		return nil, errors.New("missing required --input file (or use --demo)")
	}
	utterances, err := intent.ParseUtteranceFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return utterances, nil
}

// classifyUtterances batches utterances per session and returns results in
// input order.
func classifyUtterances(ctx context.Context, clf *intent.Classifier, fallback string, utterances []intent.Utterance) []intent.Result {
	var order []string
	groups := make(map[string][]int)
	for i, u := range utterances {
		session := u.Session
		if session == "" {
			session = fallback
		}
		if _, ok := groups[session]; !ok {
			order = append(order, session)
		}
		groups[session] = append(groups[session], i)
	}

	results := make([]intent.Result, len(utterances))
	for _, session := range order {
		idx := groups[session]
		texts := make([]string, len(idx))
		for j, i := range idx {
			texts[j] = utterances[i].Text
		}
		for j, res := range clf.AnalyzeBatch(ctx, session, texts) {
			results[idx[j]] = res
		}
	}
	return results
}

func resolveOutputPath(path, dir string) (string, error) {
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve output path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
		return absPath, nil
	}
	if dir == "" {
		dir = "csv"
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	filename := fmt.Sprintf("result_%s.csv", time.Now().Format("20060102150405"))
	return filepath.Join(absDir, filename), nil
}
