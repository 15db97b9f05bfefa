// Package matching localiza o colaborador da folha na planilha de referência.
package matching

import (
	"context"
	"sort"
	"strings"

	"complemento-service/internal/core/brl"
	"complemento-service/internal/core/reference"
	"complemento-service/internal/domain"

	"github.com/schollz/closestmatch"
	"go.uber.org/zap"
)

// Limiares do matcher.
const (
	MinAcceptScore        = 0.70
	DefaultConfidentScore = 0.90
	AmbiguityGap          = 0.04
	MaxOracleCandidates   = 12
	OracleScore           = 0.96
)

// Disambiguator escolhe, entre os candidatos, o nome que corresponde ao nome da folha.
// Deve devolver "" quando não souber.
type Disambiguator interface {
	Disambiguate(ctx context.Context, name string, candidates []string) (string, error)
}

// DisambiguatorFunc adapta uma função comum para Disambiguator.
type DisambiguatorFunc func(ctx context.Context, name string, candidates []string) (string, error)

// Disambiguate implementa Disambiguator.
func (f DisambiguatorFunc) Disambiguate(ctx context.Context, name string, candidates []string) (string, error) {
	return f(ctx, name, candidates)
}

// Matcher resolve nomes/CPFs da folha contra a planilha.
type Matcher struct {
	oracle    Disambiguator
	confident float64
	logger    *zap.Logger
}

// Option configura o Matcher.
type Option func(*Matcher)

// WithDisambiguator liga o oráculo de desambiguação.
func WithDisambiguator(d Disambiguator) Option {
	return func(m *Matcher) { m.oracle = d }
}

// WithConfidentScore ajusta o score a partir do qual o fuzzy dispensa o oráculo.
func WithConfidentScore(s float64) Option {
	return func(m *Matcher) {
		if s > 0 && s <= 1 {
			m.confident = s
		}
	}
}

// WithLogger define o logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMatcher cria um matcher; sem oráculo ele é totalmente determinístico.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{confident: DefaultConfidentScore, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type scored struct {
	idx   int
	score float64
}

// FindReference procura o colaborador na ordem: CPF, matrícula, nome exato, nome aproximado
// e, quando o aproximado é inseguro, o oráculo. Duplicidades nunca escolhem a primeira linha.
func (m *Matcher) FindReference(ctx context.Context, tbl *reference.Table, cpf, registration, name string) domain.MatchResult {
	if tbl.Len() == 0 {
		return domain.NoMatch()
	}

	if digits := brl.Digits(cpf); digits != "" && tbl.HasCPF() {
		if hits := tbl.ByCPF(digits); len(hits) == 1 {
			return fromRow(tbl.Row(hits[0]), 1.0, domain.MatchExactID)
		}
	}

	if strings.TrimSpace(registration) != "" && tbl.HasRegistration() {
		if hits := tbl.ByRegistration(registration); len(hits) == 1 {
			return fromRow(tbl.Row(hits[0]), 1.0, domain.MatchExactRegistration)
		}
	}

	normName := brl.NormalizeName(name)
	if normName == "" {
		return domain.NoMatch()
	}

	if hits := tbl.ByName(normName); len(hits) == 1 {
		return fromRow(tbl.Row(hits[0]), 1.0, domain.MatchExactName)
	} else if len(hits) > 1 {
		// homônimos na planilha: nem o oráculo consegue distinguir nomes idênticos
		m.logger.Debug("nome duplicado na planilha", zap.String("nome", normName), zap.Int("linhas", len(hits)))
		return domain.NoMatch()
	}

	ranking := m.rank(tbl, normName)
	best := ranking[0]
	second := 0.0
	if len(ranking) > 1 {
		second = ranking[1].score
	}

	// abaixo do piso não há palpite, nem do oráculo
	if best.score < MinAcceptScore {
		res := domain.NoMatch()
		res.Score = best.score
		return res
	}

	if m.oracle != nil && (best.score < m.confident || best.score-second <= AmbiguityGap) {
		if res, ok := m.askOracle(ctx, tbl, name, normName, ranking); ok {
			return res
		}
	}
	return fromRow(tbl.Row(best.idx), best.score, domain.MatchFuzzyName)
}

// rank pontua todas as linhas, do maior para o menor score (empate mantém a ordem da planilha).
func (m *Matcher) rank(tbl *reference.Table, normName string) []scored {
	rows := tbl.Rows()
	ranking := make([]scored, len(rows))
	for i, r := range rows {
		ranking[i] = scored{idx: i, score: Score(normName, r.NormalizedName)}
	}
	sort.SliceStable(ranking, func(i, j int) bool { return ranking[i].score > ranking[j].score })
	return ranking
}

func (m *Matcher) askOracle(ctx context.Context, tbl *reference.Table, name, normName string, ranking []scored) (domain.MatchResult, bool) {
	candidates, byName := oracleCandidates(tbl, normName, ranking)
	if len(candidates) == 0 {
		return domain.MatchResult{}, false
	}

	reply, err := m.oracle.Disambiguate(ctx, name, candidates)
	if err != nil {
		m.logger.Warn("falha no oráculo de desambiguação; mantendo resultado aproximado",
			zap.String("nome", name), zap.Error(err))
		return domain.MatchResult{}, false
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return domain.MatchResult{}, false
	}
	for _, c := range candidates {
		if strings.EqualFold(reply, c) {
			return fromRow(tbl.Row(byName[c]), OracleScore, domain.MatchOracle), true
		}
	}
	m.logger.Debug("resposta do oráculo fora da lista de candidatos", zap.String("resposta", reply))
	return domain.MatchResult{}, false
}

// oracleCandidates monta a lista (até MaxOracleCandidates) com os melhores por token e as
// sugestões por n-gramas de caracteres, que pegam grafias diferentes sem token em comum.
func oracleCandidates(tbl *reference.Table, normName string, ranking []scored) ([]string, map[string]int) {
	byName := make(map[string]int)
	var candidates []string
	add := func(idx int) {
		if len(candidates) >= MaxOracleCandidates {
			return
		}
		display := tbl.Row(idx).DisplayName
		if _, dup := byName[display]; dup || display == "" {
			return
		}
		byName[display] = idx
		candidates = append(candidates, display)
	}

	tokenSlots := MaxOracleCandidates * 3 / 4
	for _, s := range ranking {
		if s.score <= 0 || len(candidates) >= tokenSlots {
			break
		}
		add(s.idx)
	}

	keys := make([]string, 0, tbl.Len())
	keyIdx := make(map[string]int, tbl.Len())
	for i, r := range tbl.Rows() {
		if _, seen := keyIdx[r.NormalizedName]; seen || r.NormalizedName == "" {
			continue
		}
		keyIdx[r.NormalizedName] = i
		keys = append(keys, r.NormalizedName)
	}
	if len(keys) > 0 {
		cm := closestmatch.New(keys, []int{2, 3})
		// closestmatch indexa as chaves em minúsculas
		for _, k := range cm.ClosestN(strings.ToLower(normName), MaxOracleCandidates) {
			if k == "" {
				continue
			}
			if idx, ok := keyIdx[k]; ok {
				add(idx)
			}
		}
	}

	for _, s := range ranking {
		if s.score <= 0 {
			break
		}
		add(s.idx)
	}
	return candidates, byName
}

func fromRow(r domain.ReferenceRow, score float64, method domain.MatchMethod) domain.MatchResult {
	return domain.MatchResult{
		ReferenceGross: r.ReferenceGross,
		Status:         r.Status,
		Department:     r.Department,
		Role:           r.Role,
		ResolvedName:   r.DisplayName,
		Score:          score,
		Method:         method,
	}
}
