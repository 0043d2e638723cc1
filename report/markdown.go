// Package report monta o documento Markdown final do relatório de setor.
package report

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"sector-gateway/news"
)

// MaxSnippets é quantos excertos entram na seção de contexto.
const MaxSnippets = 15

type Renderer interface {
	Render(sector, analysisText string, items []news.Item) string
}

// Markdown é determinístico exceto pela linha "Generated".
type Markdown struct {
	Now func() time.Time
}

func (m Markdown) Render(sector, analysisText string, items []news.Item) string {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	if len(items) > MaxSnippets {
		items = items[:MaxSnippets]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Trade Opportunities Report — %s sector (India)\n\n", capitalize(sector))
	fmt.Fprintf(&b, "**Generated:** %s\n\n", now().UTC().Format("2006-01-02 15:04 UTC"))

	b.WriteString("## Executive summary\n\n")
	b.WriteString(strings.TrimSpace(analysisText))
	b.WriteString("\n\n")

	b.WriteString("## Context snippets\n\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- **Source:** %s\n  - %s\n", it.Source, it.Excerpt)
	}
	b.WriteString("\n---\n")

	b.WriteString("## Actionable strategies\n\n")
	b.WriteString("- **Short term:** Focus on liquid opportunities with clear catalysts, risk-managed entries, and tight exits.\n")
	b.WriteString("- **Mid term:** Accumulate high-conviction plays aligned with regulatory clarity and macro tailwinds.\n")
	b.WriteString("- **Risk management:** Define position sizing, stop-loss discipline, and scenario planning.\n\n")

	b.WriteString("## Disclaimers\n\n")
	b.WriteString("- **Note:** This report is informational and not investment advice.\n")
	b.WriteString("- **Data freshness:** Web context may be incomplete; verify with official sources.\n")
	return b.String()
}

// capitalize: primeira letra maiúscula, resto minúsculo.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
