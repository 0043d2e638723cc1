package news

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultDuckDuckGoURL é o template padrão; {query} recebe a busca escapada.
const DefaultDuckDuckGoURL = "https://duckduckgo.com/?q={query}&ia=news"

const duckDuckGoSource = "duckduckgo"

// limite de leitura da página; a heurística só precisa das linhas com links
const maxPageBytes = 4 << 20

// DuckDuckGo colhe manchetes da página de notícias do DuckDuckGo.
//
// A heurística é linha a linha: toda linha com "<a" e "news" vira um item.
// É deliberadamente ingênua; a normalização remove a marcação depois.
type DuckDuckGo struct {
	URLTemplate string
	Client      *http.Client
	UserAgent   string
}

func NewDuckDuckGo(urlTemplate string, timeout time.Duration) *DuckDuckGo {
	if urlTemplate == "" {
		urlTemplate = DefaultDuckDuckGoURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DuckDuckGo{
		URLTemplate: urlTemplate,
		Client:      &http.Client{Timeout: timeout},
		UserAgent:   "sector-gateway/1.0",
	}
}

func (d *DuckDuckGo) Fetch(ctx context.Context, sector string) ([]RawItem, error) {
	query := url.QueryEscape(sector + " sector India market news 2025")
	target := strings.ReplaceAll(d.URLTemplate, "{query}", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("news: build request: %w", err)
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news: fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("news: upstream status %d", resp.StatusCode)
	}

	items, err := scanHeadlines(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("news: read body: %w", err)
	}
	if len(items) == 0 {
		items = append(items, RawItem{
			Source: duckDuckGoSource,
			Raw:    fmt.Sprintf("No structured headlines found for %s. Consider using a news API.", sector),
		})
	}
	return items, nil
}

func scanHeadlines(r io.Reader) ([]RawItem, error) {
	var items []RawItem
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxPageBytes)
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, "<a") && strings.Contains(strings.ToLower(line), "news") {
			items = append(items, RawItem{Source: duckDuckGoSource, Raw: strings.TrimSpace(line)})
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, bufio.ErrTooLong) {
		return nil, err
	}
	return items, nil
}
