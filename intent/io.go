package intent

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Utterance is one input line for batch classification.
type Utterance struct {
	Session string
	Text    string
}

var (
	textColumnCandidates    = []string{"text", "utterance", "message", "query", "input", "sentence"}
	sessionColumnCandidates = []string{"session", "session_id", "conversation", "conversation_id"}
)

// ParseUtteranceFile reads utterances from a plain text file (one per line) or
// a CSV/TSV file with a text column and an optional session column.
func ParseUtteranceFile(path string) ([]Utterance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ParseDelimitedUtterances(f, ',')
	case ".tsv":
		return ParseDelimitedUtterances(f, '\t')
	default:
		return ParsePlainUtterances(f)
	}
}

// ParsePlainUtterances reads one utterance per non-empty line.
func ParsePlainUtterances(r io.Reader) ([]Utterance, error) {
	var out []Utterance
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := cleanCell(scanner.Text())
		if line == "" {
			continue
		}
		out = append(out, Utterance{Text: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan text input: %w", err)
	}
	return out, nil
}

// ParseDelimitedUtterances reads CSV-style rows. Without a recognised header
// the first column is the text and every row is data.
func ParseDelimitedUtterances(r io.Reader, comma rune) ([]Utterance, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read delimited input: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("empty input")
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = cleanCell(cell)
	}
	textCol := findColumn(header, textColumnCandidates)
	sessionCol := findColumn(header, sessionColumnCandidates)
	start := 0
	if textCol >= 0 || sessionCol >= 0 {
		start = 1
	}
	if textCol < 0 {
		if start == 1 {
			return nil, errors.New("no text column found")
		}
		textCol = 0
	}

	out := make([]Utterance, 0, len(rows)-start)
	for _, row := range rows[start:] {
		if textCol >= len(row) {
			continue
		}
		text := cleanCell(row[textCol])
		if text == "" {
			continue
		}
		u := Utterance{Text: text}
		if sessionCol >= 0 && sessionCol < len(row) {
			u.Session = cleanCell(row[sessionCol])
		}
		out = append(out, u)
	}
	return out, nil
}

// WriteResultsCSV writes one row per result with the accepted top intent and
// the fused score of every catalog intent.
func WriteResultsCSV(w io.Writer, results []Result, threshold float64) error {
	cw := csv.NewWriter(w)
	names := Intents()
	header := append([]string{"text", "top_intent", "top_score", "neural_status"}, names...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		top, ok := TopIntent(r.Fused, threshold)
		row := make([]string, 0, len(header))
		row = append(row, r.Text)
		if ok {
			row = append(row, top.Intent, formatScore(top.Score))
		} else {
			row = append(row, "", "")
		}
		row = append(row, string(r.Neural.Status))
		for _, name := range names {
			row = append(row, formatScore(r.Fused.Get(name)))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}

func findColumn(header []string, candidates []string) int {
	for i, col := range header {
		for _, cand := range candidates {
			if strings.EqualFold(col, cand) {
				return i
			}
		}
	}
	return -1
}
