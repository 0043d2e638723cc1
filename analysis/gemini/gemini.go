// Package gemini implementa analysis.Analyzer sobre o endpoint generateContent.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sector-gateway/analysis"
	"sector-gateway/news"
)

const (
	DefaultModel    = "gemini-1.5-flash"
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/{model}:generateContent"

	// ParseFailureText substitui a análise quando a resposta 2xx não tem o texto esperado.
	ParseFailureText = "Unable to parse Gemini response. Check API key, model, and payload."
)

const maxResponseBytes = 8 << 20

type Config struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

type Client struct {
	apiKey   string
	model    string
	endpoint string
	http     *http.Client
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		endpoint: strings.ReplaceAll(cfg.Endpoint, "{model}", cfg.Model),
		http:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *Client) Model() string    { return c.model }
func (c *Client) Endpoint() string { return c.endpoint }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Analyze faz uma única chamada. Erros de rede e status não-2xx voltam como
// analysis.ErrTransport; corpo 2xx que não decodifica vira ParseFailureText sem erro.
func (c *Client) Analyze(ctx context.Context, sector string, items []news.Item) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: BuildPrompt(sector, items)}}}},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", analysis.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return "", fmt.Errorf("%w: status %d", analysis.ErrTransport, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		// conexão caiu no meio do corpo: é transporte, não parse
		return "", fmt.Errorf("%w: read body: %v", analysis.ErrTransport, err)
	}
	return extractText(raw), nil
}

func extractText(raw []byte) string {
	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return ParseFailureText
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return ParseFailureText
	}
	text := out.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return ParseFailureText
	}
	return text
}

// BuildPrompt monta o prompt de analista com um bullet por excerto.
func BuildPrompt(sector string, items []news.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert market analyst for India. Analyze the '%s' sector using "+
		"the following recent context snippets. Identify trade opportunities, risks, "+
		"regulatory notes, key players, macro signals, and actionable strategies for short- and mid-term.\n\n", sector)
	b.WriteString("Context:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- [%s] %s\n", it.Source, it.Excerpt)
	}
	b.WriteString("\nProduce concise, current insights. Avoid hallucinations; if data seems sparse, state assumptions clearly.")
	return b.String()
}

var _ analysis.Analyzer = (*Client)(nil)
