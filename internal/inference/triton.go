// Package inference talks to the neural intent model, either through a Triton
// (KServe v2) HTTP endpoint or through a local ONNX Runtime session.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrMalformedResponse marks an inference answer whose shape does not fit the request.
var ErrMalformedResponse = errors.New("malformed inference response")

// TritonConfig addresses one model on a Triton inference server.
type TritonConfig struct {
	URL          string
	Model        string
	ModelVersion string
	InputName    string
	OutputName   string
	HTTPClient   *http.Client
}

// TritonClient calls the KServe v2 HTTP/JSON inference protocol.
type TritonClient struct {
	base   string
	cfg    TritonConfig
	client *http.Client
}

type tensorInput struct {
	Name     string   `json:"name"`
	Shape    []int    `json:"shape"`
	Datatype string   `json:"datatype"`
	Data     []string `json:"data"`
}

type requestedOutput struct {
	Name string `json:"name"`
}

type inferRequest struct {
	Inputs  []tensorInput     `json:"inputs"`
	Outputs []requestedOutput `json:"outputs"`
}

type tensorOutput struct {
	Name     string    `json:"name"`
	Shape    []int     `json:"shape"`
	Datatype string    `json:"datatype"`
	Data     []float32 `json:"data"`
}

type inferResponse struct {
	ModelName string         `json:"model_name"`
	Outputs   []tensorOutput `json:"outputs"`
	Error     string         `json:"error,omitempty"`
}

// NewTritonClient validates cfg. A bare host:port URL gets an http scheme.
func NewTritonClient(cfg TritonConfig) (*TritonClient, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil, errors.New("triton url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse triton url: %w", err)
	}
	if cfg.Model == "" {
		return nil, errors.New("triton model name is required")
	}
	if cfg.InputName == "" {
		cfg.InputName = "text"
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "probabilities"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &TritonClient{
		base:   strings.TrimRight(u.String(), "/"),
		cfg:    cfg,
		client: client,
	}, nil
}

// Name identifies the backend and model for logs and cache keys.
func (c *TritonClient) Name() string {
	return "triton:" + c.cfg.Model
}

func (c *TritonClient) inferURL() string {
	path := "/v2/models/" + url.PathEscape(c.cfg.Model)
	if c.cfg.ModelVersion != "" {
		path += "/versions/" + url.PathEscape(c.cfg.ModelVersion)
	}
	return c.base + path + "/infer"
}

// Infer sends texts as one [n,1] BYTES tensor and returns the probability rows.
func (c *TritonClient) Infer(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(inferRequest{
		Inputs: []tensorInput{{
			Name:     c.cfg.InputName,
			Shape:    []int{len(texts), 1},
			Datatype: "BYTES",
			Data:     texts,
		}},
		Outputs: []requestedOutput{{Name: c.cfg.OutputName}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.inferURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post infer: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("infer returned %s: %s", resp.Status, truncate(string(payload), 200))
	}

	var decoded inferResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("infer error: %s", decoded.Error)
	}
	return c.extractRows(decoded, len(texts))
}

func (c *TritonClient) extractRows(resp inferResponse, n int) ([][]float32, error) {
	for _, out := range resp.Outputs {
		if out.Name != c.cfg.OutputName {
			continue
		}
		if len(out.Shape) != 2 || out.Shape[0] != n || out.Shape[1] <= 0 {
			return nil, fmt.Errorf("%w: output shape %v for %d inputs", ErrMalformedResponse, out.Shape, n)
		}
		width := out.Shape[1]
		if len(out.Data) != n*width {
			return nil, fmt.Errorf("%w: %d values for shape %v", ErrMalformedResponse, len(out.Data), out.Shape)
		}
		rows := make([][]float32, n)
		for i := range rows {
			rows[i] = append([]float32(nil), out.Data[i*width:(i+1)*width]...)
		}
		return rows, nil
	}
	return nil, fmt.Errorf("%w: output %q missing", ErrMalformedResponse, c.cfg.OutputName)
}

// Ready probes the server readiness endpoint.
func (c *TritonClient) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v2/health/ready", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe ready: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server not ready: %s", resp.Status)
	}
	return nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
