package app

import (
	"fmt"
	"strings"

	"yashubustudio/intentclassifier/intent"
)

const fyneAppID = "studio.yashubu.intentclassifier"

// ResultRow is one classified utterance as shown in the result table.
type ResultRow struct {
	Session  string
	Result   intent.Result
	Top      intent.Score
	Accepted bool
}

func newResultRow(session string, res intent.Result, threshold float64) ResultRow {
	row := ResultRow{Session: session, Result: res}
	if top, ok := intent.TopIntent(res.Fused, threshold); ok {
		row.Top, row.Accepted = top, true
	} else if ranked := res.Fused.Ranked(); len(ranked) > 0 {
		row.Top = ranked[0]
	}
	return row
}

type tableColumn struct {
	Title  string
	Width  float32
	Render func(ResultRow) string
}

func resultColumns(candidates int) []tableColumn {
	cols := []tableColumn{
		{Title: "Utterance", Width: 320, Render: func(r ResultRow) string { return r.Result.Text }},
		{Title: "Top intent", Width: 190, Render: func(r ResultRow) string {
			if !r.Accepted {
				return "(below threshold)"
			}
			return r.Top.Intent
		}},
		{Title: "Fused", Width: 70, Render: func(r ResultRow) string { return formatScore(r.Top.Score, r.Top.Intent != "") }},
		{Title: "Rule", Width: 70, Render: func(r ResultRow) string {
			return formatScore(r.Result.Rule.Get(r.Top.Intent), r.Top.Intent != "")
		}},
		{Title: "Neural", Width: 70, Render: func(r ResultRow) string {
			return formatScore(r.Result.Neural.Scores.Get(r.Top.Intent), r.Result.Neural.OK() && r.Top.Intent != "")
		}},
		{Title: "Status", Width: 90, Render: func(r ResultRow) string { return string(r.Result.Neural.Status) }},
	}
	for i := 0; i < candidates; i++ {
		idx := i + 1
		cols = append(cols, tableColumn{
			Title:  fmt.Sprintf("Candidate %d", idx+1),
			Width:  200,
			Render: func(r ResultRow) string { return formatCandidateAt(r, idx) },
		})
	}
	return cols
}

func formatScore(v float64, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}

// formatCandidateAt renders the idx-th best fused intent with its components.
func formatCandidateAt(r ResultRow, idx int) string {
	ranked := r.Result.Fused.Ranked()
	if idx < 0 || idx >= len(ranked) {
		return ""
	}
	s := ranked[idx]
	if s.Score == 0 {
		return ""
	}
	return fmt.Sprintf("%s\n%.3f (r=%.2f n=%.2f)", s.Intent, s.Score,
		r.Result.Rule.Get(s.Intent), r.Result.Neural.Scores.Get(s.Intent))
}

func splitNonEmptyLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	parts := strings.Split(s, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func summarizeConfig(cfg intent.Config, neuralEnabled bool, threshold float64) string {
	backend := cfg.Neural.Backend
	switch {
	case !neuralEnabled:
		backend = "disabled"
	case backend == intent.BackendTriton:
		backend = fmt.Sprintf("triton %s (%s v%s)", cfg.Neural.URL, cfg.Neural.Model, cfg.Neural.ModelVersion)
	case backend == intent.BackendONNX:
		backend = "onnx " + cfg.Neural.ONNX.ModelPath
	}
	profiles := "built-in"
	if cfg.Rules.ProfileFile != "" {
		profiles = cfg.Rules.ProfileFile
	}
	return fmt.Sprintf("Neural: %s / timeout %s / profiles: %s / threshold %.2f / weights %.1f rule + %.1f neural",
		backend, cfg.Neural.Timeout, profiles, threshold, intent.RuleWeight, intent.NeuralWeight)
}
