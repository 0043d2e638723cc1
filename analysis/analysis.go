// Package analysis define o contrato do backend de análise generativa e as
// políticas em volta dele (texto de fallback, throttle de chamadas).
package analysis

import (
	"context"
	"errors"
	"fmt"

	"sector-gateway/news"
)

// ErrTransport marca falha de transporte: rede, timeout ou status não-2xx.
// Falha de parse NÃO é erro: o backend devolve o texto placeholder.
var ErrTransport = errors.New("analysis: transport failure")

// Analyzer produz texto livre de análise para um setor a partir dos excertos.
type Analyzer interface {
	Analyze(ctx context.Context, sector string, items []news.Item) (string, error)
}

// AnalyzerFunc adapta uma função comum para Analyzer.
type AnalyzerFunc func(ctx context.Context, sector string, items []news.Item) (string, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, sector string, items []news.Item) (string, error) {
	return f(ctx, sector, items)
}

// FallbackText é o resumo fixo usado quando não há credencial do backend.
func FallbackText(sector string) string {
	return "Gemini API key not configured. Fallback summary:\n" +
		fmt.Sprintf("- The %s sector in India shows mixed signals.\n", sector) +
		"- Validate demand drivers, export trends, and regulatory updates.\n" +
		"- Consider a basket approach with risk-managed entries.\n"
}
