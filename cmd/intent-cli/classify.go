package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"yashubustudio/intentclassifier/intent"
)

func newClassifyCmd(c *cli) *cobra.Command {
	var (
		asJSON bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "classify TEXT...",
		Short: "Print fused, rule and neural scores for each utterance",
		Long: `Classifies each argument in turn within one conversation session, so later
utterances see earlier ones through the conversation window.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clf, err := c.classifier()
			if err != nil {
				return err
			}
			defer clf.Close()

			out := cmd.OutOrStdout()
			results := make([]intent.Result, 0, len(args))
			for _, text := range args {
				results = append(results, clf.Analyze(cmd.Context(), c.session, text))
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			for i, res := range results {
				printResult(out, i+1, res, limit)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	cmd.Flags().IntVar(&limit, "limit", 3, "number of intents to show per utterance")
	return cmd
}

func newTopCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "top TEXT",
		Short: "Print the best intent if it reaches the threshold",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clf, err := c.classifier()
			if err != nil {
				return err
			}
			defer clf.Close()

			text := strings.Join(args, " ")
			top, ok := clf.TopIntentInSession(cmd.Context(), c.session, text, clf.Threshold())
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintf(out, "no intent above %.2f\n", clf.Threshold())
				return nil
			}
			fmt.Fprintf(out, "%s\t%.4f\n", top.Intent, top.Score)
			return nil
		},
	}
}

func printResult(w io.Writer, n int, res intent.Result, limit int) {
	fmt.Fprintf(w, "%d. %s\n", n, res.Text)
	fmt.Fprintf(w, "    normalized: %q  neural: %s\n", res.Normalized, res.Neural.Status)
	ranked := res.Fused.Ranked()
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if len(ranked) == 0 {
		fmt.Fprintln(w, "    no scores")
		return
	}
	for _, s := range ranked {
		fmt.Fprintf(w, "    - %-20s fused=%.4f rule=%.4f neural=%.4f\n",
			s.Intent, s.Score, res.Rule.Get(s.Intent), res.Neural.Scores.Get(s.Intent))
	}
}
