package payroll

import (
	"context"
	"strings"

	"complemento-service/internal/core/brl"
	"complemento-service/internal/domain"

	"github.com/shopspring/decimal"
)

// OracleEvent é uma verba devolvida pela extração externa (provento OU desconto).
type OracleEvent struct {
	Code        string              `json:"codigo"`
	Description string              `json:"descricao"`
	Reference   string              `json:"referencia"`
	Earning     decimal.NullDecimal `json:"provento"`
	Deduction   decimal.NullDecimal `json:"desconto"`
}

// OracleExtraction é o contrato JSON da extração externa. Campos vazios ou null não
// sobrescrevem o resultado determinístico.
type OracleExtraction struct {
	Competence      string              `json:"competencia"`
	Name            string              `json:"nome"`
	CPF             string              `json:"cpf"`
	TotalEarnings   decimal.NullDecimal `json:"total_vencimentos"`
	TotalDeductions decimal.NullDecimal `json:"total_descontos"`
	Net             decimal.NullDecimal `json:"liquido"`
	Events          []OracleEvent       `json:"eventos"`
}

// ExtractionOracle lê o texto bruto de uma página (ou bloco) e devolve os campos do holerite.
type ExtractionOracle interface {
	ExtractPage(ctx context.Context, text string) (*OracleExtraction, error)
}

// ExtractionOracleFunc adapta uma função para ExtractionOracle.
type ExtractionOracleFunc func(ctx context.Context, text string) (*OracleExtraction, error)

// ExtractPage implementa ExtractionOracle.
func (f ExtractionOracleFunc) ExtractPage(ctx context.Context, text string) (*OracleExtraction, error) {
	return f(ctx, text)
}

// mergeOracle aplica a extração externa sobre o documento determinístico.
func mergeOracle(doc *domain.EmployeeDocument, ext *OracleExtraction) {
	if ext == nil {
		return
	}
	adopted := false
	if c := strings.TrimSpace(ext.Competence); competenceAnyRegex.MatchString(c) {
		doc.Competence = competenceAnyRegex.FindString(c)
		adopted = true
	}
	if n := strings.TrimSpace(ext.Name); n != "" {
		doc.Name = brl.TitleName(n)
		adopted = true
	}
	if cpf := formatCPF(ext.CPF); cpf != "" {
		doc.CPF = cpf
		adopted = true
	}
	for _, v := range []struct {
		src decimal.NullDecimal
		dst *decimal.NullDecimal
	}{
		{ext.TotalEarnings, &doc.DeclaredEarnings},
		{ext.TotalDeductions, &doc.DeclaredDeductions},
		{ext.Net, &doc.DeclaredNet},
	} {
		if v.src.Valid {
			*v.dst = v.src
			adopted = true
		}
	}

	if events := oracleEvents(ext.Events); len(events) > 0 {
		doc.Events = events
		adopted = true
	}
	// resposta vazia mantém a origem determinística
	if adopted {
		doc.Source = domain.SourceOracle
	}
}

func oracleEvents(in []OracleEvent) []domain.PayEvent {
	var out []domain.PayEvent
	seen := make(map[string]struct{})
	for _, e := range in {
		code := brl.Digits(e.Code)
		if code == "" {
			continue
		}
		ev := domain.PayEvent{
			Code:        code,
			Description: brl.CollapseSpaces(e.Description),
			Reference:   strings.TrimSpace(e.Reference),
			Earning:     e.Earning,
			Deduction:   e.Deduction,
		}
		out = appendUnique(out, seen, ev)
	}
	return out
}

// formatCPF devolve o CPF no formato 000.000.000-00, ou "" se não tiver 11 dígitos.
func formatCPF(raw string) string {
	d := brl.Digits(raw)
	if len(d) != 11 {
		return ""
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}
