package inference

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// OrtConfig wraps the paths and tensor names for a local sequence classifier.
type OrtConfig struct {
	SharedLibrary string
	ModelPath     string
	TokenizerPath string
	MaxSeqLen     int
	NumLabels     int

	InputIDsName      string
	AttentionMaskName string
	LogitsName        string
}

// OrtSession runs a BERT-style classifier exported to ONNX and returns softmax
// probabilities per input.
type OrtSession struct {
	cfg  OrtConfig
	tk   *tokenizer.Tokenizer
	mu   sync.Mutex
	sess *ort.DynamicAdvancedSession
}

var (
	envMu   sync.Mutex
	envRefs int
)

func acquireEnvironment(lib string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 {
		if lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}
	envRefs++
	return nil
}

func releaseEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 {
		return nil
	}
	envRefs--
	if envRefs == 0 {
		return ort.DestroyEnvironment()
	}
	return nil
}

// NewOrtSession loads the tokenizer and model.
func NewOrtSession(cfg OrtConfig) (*OrtSession, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("onnx model path is required")
	}
	if cfg.TokenizerPath == "" {
		return nil, errors.New("tokenizer path is required")
	}
	if cfg.NumLabels <= 0 {
		return nil, errors.New("label count must be positive")
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 128
	}
	if cfg.InputIDsName == "" {
		cfg.InputIDsName = "input_ids"
	}
	if cfg.AttentionMaskName == "" {
		cfg.AttentionMaskName = "attention_mask"
	}
	if cfg.LogitsName == "" {
		cfg.LogitsName = "logits"
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	if err := acquireEnvironment(cfg.SharedLibrary); err != nil {
		return nil, err
	}
	sess, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputIDsName, cfg.AttentionMaskName},
		[]string{cfg.LogitsName},
		nil,
	)
	if err != nil {
		_ = releaseEnvironment()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return &OrtSession{cfg: cfg, tk: tk, sess: sess}, nil
}

// Name identifies the model file.
func (s *OrtSession) Name() string {
	return "onnx:" + filepath.Base(s.cfg.ModelPath)
}

// Close releases the session and, for the last session, the runtime environment.
func (s *OrtSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil
	}
	err := s.sess.Destroy()
	s.sess = nil
	if envErr := releaseEnvironment(); err == nil {
		err = envErr
	}
	return err
}

// Infer tokenizes texts, pads them to a common length and runs one batch.
func (s *OrtSession) Infer(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ids, mask, seqLen, err := s.encode(texts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := int64(len(texts))
	idsTensor, err := ort.NewTensor(ort.NewShape(batch, int64(seqLen)), ids)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(ort.NewShape(batch, int64(seqLen)), mask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	logits, err := ort.NewEmptyTensor[float32](ort.NewShape(batch, int64(s.cfg.NumLabels)))
	if err != nil {
		return nil, fmt.Errorf("logits tensor: %w", err)
	}
	defer logits.Destroy()

	s.mu.Lock()
	if s.sess == nil {
		s.mu.Unlock()
		return nil, errors.New("onnx session closed")
	}
	err = s.sess.Run([]ort.Value{idsTensor, maskTensor}, []ort.Value{logits})
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("run onnx session: %w", err)
	}

	flat := logits.GetData()
	width := s.cfg.NumLabels
	if len(flat) != len(texts)*width {
		return nil, fmt.Errorf("%w: %d logits for %d inputs", ErrMalformedResponse, len(flat), len(texts))
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = softmax(flat[i*width : (i+1)*width])
	}
	return out, nil
}

// encode returns row-major int64 ids and mask padded to the longest sequence.
func (s *OrtSession) encode(texts []string) ([]int64, []int64, int, error) {
	encoded := make([][]int, len(texts))
	masks := make([][]int, len(texts))
	seqLen := 1
	for i, t := range texts {
		enc, err := s.tk.EncodeSingle(t, true)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("tokenize input %d: %w", i, err)
		}
		ids := enc.Ids
		mask := enc.AttentionMask
		if len(ids) > s.cfg.MaxSeqLen {
			ids = ids[:s.cfg.MaxSeqLen]
		}
		if len(mask) > len(ids) {
			mask = mask[:len(ids)]
		}
		encoded[i] = ids
		masks[i] = mask
		seqLen = max(seqLen, len(ids))
	}

	ids := make([]int64, len(texts)*seqLen)
	mask := make([]int64, len(texts)*seqLen)
	for i := range encoded {
		row := i * seqLen
		for j, id := range encoded[i] {
			ids[row+j] = int64(id)
			if j < len(masks[i]) {
				mask[row+j] = int64(masks[i][j])
			} else {
				mask[row+j] = 1
			}
		}
	}
	return ids, mask, seqLen, nil
}
