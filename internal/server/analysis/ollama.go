package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/medchain/medchain-server/internal/common"
	"github.com/medchain/medchain-server/internal/logging"
)

const systemPrompt = "You are a medical records assistant. Summarize the supplied " +
	"record for a clinician in two to three sentences, then list notable findings. " +
	"Always state that the summary must be confirmed by a qualified specialist."

type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OllamaGateway talks to an Ollama-compatible /api/generate endpoint.
type OllamaGateway struct {
	config OllamaConfig
	client *http.Client
	logger logging.Logger
}

func NewOllamaGateway(config OllamaConfig, logger logging.Logger) *OllamaGateway {
	return &OllamaGateway{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With("module", "analysis"),
	}
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	System string   `json:"system,omitempty"`
	Stream bool     `json:"stream"`
	Images []string `json:"images,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// Analyze sends the record to the inference backend and returns its summary.
// Transport errors and 5xx responses are retried a couple of times before
// surfacing as ErrAnalysisFault; the record itself is never touched.
func (g *OllamaGateway) Analyze(ctx context.Context, meta Metadata, content []byte) (*Result, error) {
	req := generateRequest{
		Model:  g.config.Model,
		Prompt: buildPrompt(meta),
		System: systemPrompt,
		Stream: false,
	}
	if meta.MediaKind == "image" {
		req.Images = []string{base64.StdEncoding.EncodeToString(content)}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding analysis request: %w", err)
	}

	var out generateResponse
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return g.generate(ctx, body, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("record %s: %s: %w", meta.RecordID, err.Error(), common.ErrAnalysisFault)
	}

	summary := strings.TrimSpace(out.Response)
	if summary == "" {
		return nil, fmt.Errorf("record %s: empty model response: %w", meta.RecordID, common.ErrAnalysisFault)
	}

	model := out.Model
	if model == "" {
		model = g.config.Model
	}

	g.logger.Info(ctx, "analysis completed", "record_id", meta.RecordID, "model", model)

	return &Result{Summary: summary, Model: model}, nil
}

func (g *OllamaGateway) generate(ctx context.Context, body []byte, out *generateResponse) error {
	url := strings.TrimRight(g.config.BaseURL, "/") + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("inference backend returned status %d", resp.StatusCode)
		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(err)
		}
		return err
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("decoding analysis response: %w", err)
	}
	return nil
}

func buildPrompt(meta Metadata) string {
	var b strings.Builder
	switch meta.MediaKind {
	case "image":
		b.WriteString("The attached image is a medical record scan. Describe and summarize it.\n")
	case "pdf":
		b.WriteString("Summarize the following medical document based on its metadata.\n")
	default:
		b.WriteString("Summarize the following medical record based on its metadata.\n")
	}
	fmt.Fprintf(&b, "Title: %s\n", meta.Title)
	if meta.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", meta.Description)
	}
	fmt.Fprintf(&b, "Media: %s, %d bytes\n", meta.MediaKind, meta.SizeBytes)
	return b.String()
}
