package news

import "strings"

// MaxExcerptLen é o limite de caracteres (runes) de um excerto.
const MaxExcerptLen = 500

const unknownSource = "unknown"

// remoção literal de marcação, aplicada em sequência; não é um parser de HTML
var markupReplacements = [...][2]string{
	{"<a", ""},
	{"</a>", ""},
	{"<b>", ""},
	{"</b>", ""},
	{"<br>", " "},
}

func stripMarkup(s string) string {
	for _, r := range markupReplacements {
		s = strings.ReplaceAll(s, r[0], r[1])
	}
	return s
}

// Normalize limpa e corta os itens, preservando a ordem. Nunca falha.
func Normalize(raw []RawItem) []Item {
	out := make([]Item, 0, len(raw))
	for i, it := range raw {
		src := strings.TrimSpace(it.Source)
		if src == "" {
			src = unknownSource
		}
		out = append(out, Item{
			ID:      i + 1,
			Source:  src,
			Excerpt: truncate(strings.TrimSpace(stripMarkup(it.Raw)), MaxExcerptLen),
		})
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
