package brl

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var titleCaser = cases.Title(language.BrazilianPortuguese)

// NormalizeName remove acentos e pontuação, colapsa espaços e coloca em caixa alta.
// É idempotente: NormalizeName(NormalizeName(x)) == NormalizeName(x).
func NormalizeName(s string) string {
	if s == "" {
		return ""
	}
	result := foldUpper(s)

	var b strings.Builder
	b.Grow(len(result))
	pendingSpace := false
	for _, r := range result {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// maxFoldPasses limita foldUpper; duas passadas bastam para os casos conhecidos.
const maxFoldPasses = 4

// foldUpper tira os acentos e depois passa para caixa alta, repetindo até estabilizar:
// há letras que decompõem numa base minúscula (ǰ) e maiúsculas que ganham acento (ΐ).
func foldUpper(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	for range maxFoldPasses {
		out, _, err := transform.String(t, s)
		if err != nil {
			out = s
		}
		out = strings.ToUpper(out)
		if out == s {
			break
		}
		s = out
	}
	return s
}

// Tokens devolve as palavras de um nome já normalizado.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// Digits mantém apenas os dígitos (CPF, matrícula).
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TitleName coloca um nome extraído da folha em "Title Case".
func TitleName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return titleCaser.String(strings.ToLower(s))
}

// CollapseSpaces troca qualquer sequência de espaços por um único espaço.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
