// Package news coleta trechos de contexto recentes para um setor e os
// normaliza em excertos curtos usados como entrada da análise.
package news

import "context"

// RawItem é o que a fonte devolve: rótulo + texto bruto.
type RawItem struct {
	Source string
	Raw    string
}

// Item é um RawItem normalizado. ID começa em 1, na ordem de chegada.
type Item struct {
	ID      int    `json:"id"`
	Source  string `json:"source"`
	Excerpt string `json:"excerpt"`
}

// Source busca itens brutos para um setor. Deve devolver pelo menos um item
// placeholder em vez de lista vazia quando nada for encontrado.
type Source interface {
	Fetch(ctx context.Context, sector string) ([]RawItem, error)
}
