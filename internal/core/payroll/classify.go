// Package payroll extrai e concilia as verbas de recibos e extratos de folha.
package payroll

import (
	"strings"

	"complemento-service/internal/core/brl"
)

// Polarity indica se uma verba é provento ou desconto.
type Polarity int

const (
	PolarityUnknown Polarity = iota
	PolarityEarning
	PolarityDeduction
)

// Códigos padrão da folha.
var (
	DefaultEarningCodes   = []string{"8781"}
	DefaultDeductionCodes = []string{"981", "998", "999"}
)

// DeductionKeywords forçam desconto quando aparecem como prefixo de uma palavra da descrição.
var DeductionKeywords = []string{
	"DESC", "IRRF", "INSS", "IMPOSTO", "ADIANT", "MULTA", "ATRASO", "FALTA", "PENSAO", "CONTRIB",
}

// DSR começa com DESC mas é provento.
var keywordExceptions = []string{"DESCANSO"}

// Classifier aplica a tabela fixa de códigos e a lista de palavras-chave.
type Classifier struct {
	codes    map[string]Polarity
	keywords []string
}

// NewClassifier monta o classificador com os códigos de polaridade forçada.
func NewClassifier(earningCodes, deductionCodes []string) *Classifier {
	c := &Classifier{codes: make(map[string]Polarity), keywords: DeductionKeywords}
	for _, code := range earningCodes {
		if code = strings.TrimSpace(code); code != "" {
			c.codes[code] = PolarityEarning
		}
	}
	for _, code := range deductionCodes {
		if code = strings.TrimSpace(code); code != "" {
			c.codes[code] = PolarityDeduction
		}
	}
	return c
}

// DefaultClassifier usa 8781 como provento e 981/998/999 como desconto.
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultEarningCodes, DefaultDeductionCodes)
}

// CodeHint devolve a polaridade forçada pelo código, se houver.
func (c *Classifier) CodeHint(code string) Polarity {
	if c == nil {
		return PolarityUnknown
	}
	return c.codes[strings.TrimSpace(code)]
}

// Polarity combina código e descrição. O código tem precedência; a palavra-chave só vale
// quando o código não tem dica.
func (c *Classifier) Polarity(code, description string) Polarity {
	if p := c.CodeHint(code); p != PolarityUnknown {
		return p
	}
	if c.hasDeductionKeyword(description) {
		return PolarityDeduction
	}
	return PolarityUnknown
}

func (c *Classifier) hasDeductionKeyword(description string) bool {
	if c == nil {
		return false
	}
	// "I.R.R.F." só vira IRRF sem os pontos
	variants := [...]string{description, strings.ReplaceAll(description, ".", "")}
	for _, v := range variants {
		for _, tok := range brl.Tokens(brl.NormalizeName(v)) {
			if isException(tok) {
				continue
			}
			for _, kw := range c.keywords {
				if strings.HasPrefix(tok, kw) {
					return true
				}
			}
		}
	}
	return false
}

func isException(tok string) bool {
	for _, ex := range keywordExceptions {
		if strings.HasPrefix(tok, ex) {
			return true
		}
	}
	return false
}
