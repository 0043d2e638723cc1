package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sector-gateway/analysis"
	"sector-gateway/news"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		APIKey:   "test-key",
		Model:    "gemini-test",
		Endpoint: srv.URL + "/v1beta/models/{model}:generateContent",
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	c, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent", c.Endpoint())
}

func TestAnalyze_Success(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Strong demand."}]}}]}`)
	})

	items := []news.Item{{ID: 1, Source: "duckduckgo", Excerpt: "Chip plant approved"}}
	out, err := c.Analyze(context.Background(), "technology", items)
	require.NoError(t, err)

	assert.Equal(t, "Strong demand.", out)
	assert.Equal(t, "/v1beta/models/gemini-test:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotBody.Contents, 1)
	require.Len(t, gotBody.Contents[0].Parts, 1)
	assert.Contains(t, gotBody.Contents[0].Parts[0].Text, "'technology' sector")
	assert.Contains(t, gotBody.Contents[0].Parts[0].Text, "- [duckduckgo] Chip plant approved")
}

func TestAnalyze_UnexpectedShapeIsPlaceholder(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"candidates":[]}`,
		`{"candidates":[{"content":{"parts":[]}}]}`,
		`{"candidates":[{"content":{"parts":[{"text":""}]}}]}`,
		`not json`,
	}
	for _, body := range bodies {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, body)
		})
		out, err := c.Analyze(context.Background(), "energy", nil)
		require.NoError(t, err, body)
		assert.Equal(t, ParseFailureText, out, body)
	}
}

func TestAnalyze_Non2xxIsTransport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"boom"}`)
	})

	_, err := c.Analyze(context.Background(), "energy", nil)
	assert.ErrorIs(t, err, analysis.ErrTransport)
	assert.ErrorContains(t, err, "status 500")
}

func TestAnalyze_TimeoutIsTransport(t *testing.T) {
	c := newTestClient(t, func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Analyze(ctx, "energy", nil)
	assert.ErrorIs(t, err, analysis.ErrTransport)
}

func TestBuildPrompt_OneBulletPerItem(t *testing.T) {
	p := BuildPrompt("auto", []news.Item{
		{ID: 1, Source: "a", Excerpt: "one"},
		{ID: 2, Source: "b", Excerpt: "two"},
	})
	assert.Contains(t, p, "Context:\n- [a] one\n- [b] two\n")
	assert.Contains(t, p, "Avoid hallucinations")
}
