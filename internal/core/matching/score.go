package matching

import (
	"strings"

	"complemento-service/internal/core/brl"
)

// Pesos da similaridade entre nomes.
const (
	SubstringScore  = 0.92
	JaccardScale    = 0.86
	FirstTokenBonus = 0.11
	LastTokenBonus  = 0.11
	MaxFuzzyScore   = 0.99
)

// Score compara dois nomes (normalizados internamente) e devolve um valor entre 0 e 1.
// Apenas nomes iguais recebem 1.0; os demais ficam limitados a MaxFuzzyScore.
func Score(a, b string) float64 {
	na, nb := brl.NormalizeName(a), brl.NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}
	// contido por palavras inteiras: "ANA" não está em "JULIANA SILVA"
	pa, pb := " "+na+" ", " "+nb+" "
	if strings.Contains(pa, pb) || strings.Contains(pb, pa) {
		return SubstringScore
	}

	ta, tb := brl.Tokens(na), brl.Tokens(nb)
	setA := make(map[string]struct{}, len(ta))
	for _, tok := range ta {
		setA[tok] = struct{}{}
	}
	setB := make(map[string]struct{}, len(tb))
	for _, tok := range tb {
		setB[tok] = struct{}{}
	}
	inter := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}

	score := float64(inter) / float64(union) * JaccardScale
	if ta[0] == tb[0] {
		score += FirstTokenBonus
	}
	if ta[len(ta)-1] == tb[len(tb)-1] {
		score += LastTokenBonus
	}
	if score > MaxFuzzyScore {
		score = MaxFuzzyScore
	}
	return score
}
