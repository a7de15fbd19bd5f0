package initdata

import (
	"bytes"
	"net/url"
	"sort"
	"strings"
)

// Canonical возвращает data-check string: все поля, кроме поля подписи,
// отсортированные по ключу и соединенные через '\n'.
func (p *Payload) Canonical() []byte {
	return CanonicalFields(p.fields)
}

// CanonicalFields строит data-check string из произвольного набора полей.
// Поля hash и signature всегда исключаются.
func CanonicalFields(fields []Field) []byte {
	pairs := make([]Field, 0, len(fields))
	for _, f := range fields {
		if f.Key == KeyHash || f.Key == KeySignature {
			continue
		}
		pairs = append(pairs, f)
	}

	// Сравнение строк в Go побайтовое
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Key < pairs[j].Key
	})

	var buf bytes.Buffer
	for i, f := range pairs {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(f.Key)
		buf.WriteByte('=')
		buf.WriteString(f.Value)
	}
	return buf.Bytes()
}

// Encode собирает поля обратно в query-string в исходном порядке.
func Encode(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, url.QueryEscape(f.Key)+"="+url.QueryEscape(f.Value))
	}
	return strings.Join(parts, "&")
}
