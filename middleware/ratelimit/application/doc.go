// Package application contém os casos de uso (regras de aplicação) para rate limit
// e limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Admit(ctx, key, sector) retorna a cota restante ou um LimitError
// com o retry-after calculado pela janela deslizante.
package application
