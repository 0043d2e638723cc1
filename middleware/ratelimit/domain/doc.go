// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// O pipeline de análise e o middleware HTTP de login usam os mesmos contratos:
// Limiter (janela deslizante por chave), LimitError (retry-after) e SlotPool.
package domain
