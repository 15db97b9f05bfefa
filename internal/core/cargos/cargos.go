// Package cargos sugere o cargo do plano de cargos e salários a partir do setor e do bruto.
package cargos

import (
	"strings"

	"complemento-service/internal/core/brl"

	"github.com/shopspring/decimal"
)

// Famílias de cargo.
const (
	FamilyDP       = "DP"
	FamilyFiscal   = "Fiscal"
	FamilyContabil = "Contábil"
	FamilyTI       = "TI"
	FamilyGeral    = "Geral"
)

// DefaultLevel é usado quando não há bruto para definir o nível.
const DefaultLevel = "Nível"

type familyRule struct {
	family string
	words  []string // palavra inteira
	stems  []string // trecho do texto
}

// Ordem importa: a primeira família que bater vence.
var familyRules = []familyRule{
	{family: FamilyDP, words: []string{"DP"}, stems: []string{"PESSOAL", "FOLHA"}},
	{family: FamilyFiscal, stems: []string{"FISCAL", "TRIBUT", "IMPOSTO"}},
	{family: FamilyContabil, stems: []string{"CONTABIL", "BALANCO"}},
	{family: FamilyTI, words: []string{"TI"}, stems: []string{"SUPORTE", "TECNOLOGIA"}},
}

type levelBand struct {
	below decimal.Decimal
	level string
}

var levelBands = []levelBand{
	{decimal.NewFromInt(2500), "Assistente I"},
	{decimal.NewFromInt(3500), "Assistente II"},
	{decimal.NewFromInt(5000), "Analista Jr"},
	{decimal.NewFromInt(7000), "Analista Pl"},
}

const topLevel = "Analista Sr"

// InferFamily classifica um texto livre (cargo, departamento) numa família.
func InferFamily(texts ...string) string {
	norm := brl.NormalizeName(strings.Join(texts, " "))
	tokens := brl.Tokens(norm)
	for _, rule := range familyRules {
		for _, w := range rule.words {
			for _, tok := range tokens {
				if tok == w {
					return rule.family
				}
			}
		}
		for _, s := range rule.stems {
			if strings.Contains(norm, s) {
				return rule.family
			}
		}
	}
	return FamilyGeral
}

// LevelBySalary devolve o nível pela faixa do bruto; "" quando o bruto é desconhecido.
func LevelBySalary(gross decimal.NullDecimal) string {
	if !gross.Valid {
		return ""
	}
	for _, band := range levelBands {
		if gross.Decimal.LessThan(band.below) {
			return band.level
		}
	}
	return topLevel
}

// FinalRole junta nível e família, ex.: "Analista Jr Fiscal".
func FinalRole(family, level string) string {
	if family == "" {
		family = FamilyGeral
	}
	if level == "" {
		level = DefaultLevel
	}
	return level + " " + family
}

// Suggest é o atalho usado pelo relatório.
func Suggest(gross decimal.NullDecimal, texts ...string) string {
	return FinalRole(InferFamily(texts...), LevelBySalary(gross))
}
