package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"yashubustudio/intentclassifier/intent"
)

const (
	logPublishDelay  = 150 * time.Millisecond
	maxLogLines      = 200
	candidateColumns = 2
)

type uiState struct {
	clf       *intent.Classifier
	cfg       intent.Config
	session   string
	threshold float64

	w             fyne.Window
	input         *widget.Entry
	log           *widget.Entry
	status        *widget.Label
	progress      *widget.ProgressBarInfinite
	configSummary *widget.Label
	sessionLabel  *widget.Label
	resTbl        *widget.Table
	columns       []tableColumn
	rows          []ResultRow
	results       []intent.Result
	statusBind    binding.String
	logBind       binding.String
	panel         *logPanel
	logger        *zap.Logger

	classifyBtn *widget.Button
	exportBtn   *widget.Button
	loadBtn     *widget.Button
	resetBtn    *widget.Button
}

// newUIState prepares bindings and the log panel so the logger can be built
// before the window exists.
func newUIState(cfg intent.Config) *uiState {
	u := &uiState{
		cfg:       cfg,
		session:   uuid.NewString(),
		threshold: cfg.Threshold,
	}
	u.statusBind = binding.NewString()
	_ = u.statusBind.Set("準備完了")
	u.logBind = binding.NewString()
	u.panel = newLogPanel(maxLogLines, logPublishDelay, func(text string) { _ = u.logBind.Set(text) })
	u.logger = zap.NewNop()
	return u
}

func (u *uiState) build(a fyne.App, clf *intent.Classifier) {
	u.clf = clf
	u.w = a.NewWindow("Intent Classifier - Rules & Neural")

	u.input = widget.NewMultiLineEntry()
	u.input.SetPlaceHolder("発話を入力（1行=1ターン、上から順に同じ会話として扱います）")

	u.log = widget.NewEntryWithData(u.logBind)
	u.log.MultiLine = true
	u.log.Wrapping = fyne.TextWrapWord
	u.log.SetPlaceHolder("処理ログ")
	u.log.Disable()

	u.status = widget.NewLabelWithData(u.statusBind)
	u.progress = widget.NewProgressBarInfinite()
	u.progress.Stop()
	u.progress.Hide()
	u.configSummary = widget.NewLabel("")
	u.configSummary.Wrapping = fyne.TextWrapWord
	u.sessionLabel = widget.NewLabel("")

	u.classifyBtn = widget.NewButtonWithIcon("分類実行", theme.ConfirmIcon(), func() { u.onClassify() })
	u.exportBtn = widget.NewButtonWithIcon("CSVエクスポート", theme.DocumentSaveIcon(), func() { u.onExport() })
	u.loadBtn = widget.NewButtonWithIcon("ファイル読込", theme.FolderOpenIcon(), func() { u.onLoadFile() })
	u.resetBtn = widget.NewButtonWithIcon("会話リセット", theme.ViewRefreshIcon(), func() { u.onResetSession() })
	settingsBtn := widget.NewButtonWithIcon("設定", theme.SettingsIcon(), func() { u.openSettings() })

	u.columns = resultColumns(candidateColumns)
	u.resTbl = widget.NewTable(
		func() (int, int) {
			return len(u.rows) + 1, len(u.columns)
		},
		func() fyne.CanvasObject {
			lbl := widget.NewLabel("")
			lbl.Wrapping = fyne.TextWrapWord
			return lbl
		},
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			lbl := obj.(*widget.Label)
			if id.Row == 0 {
				lbl.SetText(u.columns[id.Col].Title)
				lbl.Alignment = fyne.TextAlignCenter
				lbl.TextStyle = fyne.TextStyle{Bold: true}
				return
			}
			lbl.TextStyle = fyne.TextStyle{}
			lbl.Alignment = fyne.TextAlignLeading
			rowIdx := id.Row - 1
			if rowIdx >= len(u.rows) {
				lbl.SetText("")
				return
			}
			val := u.columns[id.Col].Render(u.rows[rowIdx])
			lbl.SetText(val)
			if id.Col == 0 {
				need := wrappedHeightFor(val, u.columns[id.Col].Width)
				if need < 48 {
					need = 48
				}
				u.resTbl.SetRowHeight(id.Row, need)
			}
		},
	)
	for i, col := range u.columns {
		u.resTbl.SetColumnWidth(i, col.Width)
	}
	u.resTbl.SetRowHeight(0, 32)

	controlRow1 := container.NewGridWithColumns(3, u.classifyBtn, u.exportBtn, settingsBtn)
	controlRow2 := container.NewGridWithColumns(2, u.loadBtn, u.resetBtn)
	left := container.NewVBox(
		widget.NewLabelWithStyle("会話", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewStack(u.input),
		controlRow1,
		controlRow2,
		u.sessionLabel,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("進捗", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		u.progress,
		u.status,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("設定サマリ", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		u.configSummary,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("ログ", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewStack(u.log),
	)

	split := container.NewHSplit(left, container.NewBorder(nil, nil, nil, nil, u.resTbl))
	split.Offset = 0.35

	u.w.SetContent(split)
	u.w.Resize(fyne.NewSize(1180, 760))
	u.updateConfigSummary()
	u.updateSessionLabel()
}

func (u *uiState) setBusy(b bool) {
	fyne.Do(func() {
		for _, btn := range []*widget.Button{u.classifyBtn, u.exportBtn, u.loadBtn, u.resetBtn} {
			if b {
				btn.Disable()
			} else {
				btn.Enable()
			}
		}
		if b {
			u.progress.Show()
			u.progress.Start()
		} else {
			u.progress.Stop()
			u.progress.Hide()
		}
	})
}

func (u *uiState) setStatus(text string) {
	_ = u.statusBind.Set(text)
}

func (u *uiState) updateConfigSummary() {
	u.configSummary.SetText(summarizeConfig(u.cfg, u.clf.NeuralEnabled(), u.threshold))
}

func (u *uiState) updateSessionLabel() {
	turns := len(u.clf.History(u.session))
	u.sessionLabel.SetText(fmt.Sprintf("会話ID: %s (履歴 %d/%d)", u.session[:8], turns, intent.WindowSize))
}

func (u *uiState) onClassify() {
	lines := splitNonEmptyLines(u.input.Text)
	if len(lines) == 0 {
		dialog.ShowInformation("情報", "入力テキストが空です", u.w)
		return
	}
	u.setStatus("処理中...")
	u.setBusy(true)
	u.logger.Info("分類開始", zap.Int("count", len(lines)), zap.String("session", u.session))
	start := time.Now()
	session, threshold := u.session, u.threshold

	go func(entries []string) {
		results := u.clf.AnalyzeBatch(context.Background(), session, entries)
		rows := make([]ResultRow, len(results))
		degraded := 0
		for i, res := range results {
			rows[i] = newResultRow(session, res, threshold)
			if res.Neural.Status == intent.NeuralDegraded {
				degraded++
			}
		}
		u.setBusy(false)
		fyne.Do(func() {
			u.results = results
			u.rows = rows
			u.resTbl.Refresh()
			u.updateSessionLabel()
		})
		elapsed := time.Since(start).Seconds()
		u.setStatus(fmt.Sprintf("完了 %d件 (%.1fs)", len(rows), elapsed))
		if degraded > 0 {
			u.logger.Warn("ニューラル応答なし: ルールのみで判定しました", zap.Int("count", degraded))
		}
		u.logger.Info("分類完了", zap.Int("count", len(rows)), zap.Float64("seconds", elapsed))
	}(lines)
}

func (u *uiState) onResetSession() {
	u.clf.ResetSession(u.session)
	u.session = uuid.NewString()
	u.rows = nil
	u.results = nil
	u.resTbl.Refresh()
	u.updateSessionLabel()
	u.logger.Info("会話履歴をリセットしました", zap.String("session", u.session))
}

func (u *uiState) onExport() {
	if len(u.results) == 0 {
		dialog.ShowInformation("情報", "出力データがありません", u.w)
		return
	}
	results, threshold := u.results, u.threshold
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			return
		}
		defer uc.Close()
		if err := intent.WriteResultsCSV(uc, results, threshold); err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		u.logger.Info("CSVエクスポート完了", zap.Int("count", len(results)), zap.String("uri", uc.URI().String()))
	}, u.w)
	fd.SetFileName("result.csv")
	fd.Show()
}

func (u *uiState) openSettings() {
	thresholdLabel := widget.NewLabel(fmt.Sprintf("%.2f", u.threshold))
	slider := widget.NewSlider(0.05, 0.95)
	slider.Step = 0.05
	slider.SetValue(u.threshold)
	slider.OnChanged = func(v float64) { thresholdLabel.SetText(fmt.Sprintf("%.2f", v)) }

	form := &widget.Form{Items: []*widget.FormItem{
		{Text: "採用閾値", Widget: container.NewBorder(nil, nil, nil, thresholdLabel, slider)},
	}}
	dialog.NewCustomConfirm("設定", "OK", "キャンセル", form, func(ok bool) {
		if !ok {
			return
		}
		u.threshold = slider.Value
		for i := range u.rows {
			u.rows[i] = newResultRow(u.rows[i].Session, u.rows[i].Result, u.threshold)
		}
		u.resTbl.Refresh()
		u.updateConfigSummary()
		u.logger.Info("閾値を変更しました", zap.Float64("threshold", u.threshold))
	}, u.w).Show()
}

func (u *uiState) onLoadFile() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		name := rc.URI().Path()
		utts, err := parseUtterances(name, data)
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		lines := make([]string, len(utts))
		for i, utt := range utts {
			lines[i] = utt.Text
		}
		u.input.SetText(strings.Join(lines, "\n"))
		u.logger.Info("ファイル読込", zap.String("file", filepath.Base(name)), zap.Int("count", len(lines)))
	}, u.w)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".txt", ".csv", ".tsv"}))
	fd.Show()
}

func parseUtterances(name string, data []byte) ([]intent.Utterance, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return intent.ParseDelimitedUtterances(bytes.NewReader(data), ',')
	case ".tsv":
		return intent.ParseDelimitedUtterances(bytes.NewReader(data), '\t')
	default:
		return intent.ParsePlainUtterances(bytes.NewReader(data))
	}
}

func wrappedHeightFor(text string, colWidth float32) float32 {
	lbl := widget.NewLabel(text)
	lbl.Wrapping = fyne.TextWrapWord
	lbl.Resize(fyne.NewSize(colWidth, 0))
	return lbl.MinSize().Height + 8
}
