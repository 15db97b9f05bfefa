// package domain/models.go
package domain

import (
	"github.com/shopspring/decimal"
)

// Layout identifica a família de documento de folha enviada.
type Layout string

// Layouts suportados.
const (
	LayoutRecibo  Layout = "recibo"
	LayoutExtrato Layout = "extrato"
)

// MatchMethod descreve como a linha da planilha foi encontrada.
type MatchMethod string

// Métodos de resolução, na ordem em que são tentados.
const (
	MatchExactID           MatchMethod = "exact_id"
	MatchExactRegistration MatchMethod = "exact_registration"
	MatchExactName         MatchMethod = "exact_name"
	MatchFuzzyName         MatchMethod = "fuzzy_name"
	MatchOracle            MatchMethod = "oracle_disambiguation"
	MatchNone              MatchMethod = "none"
)

// ExtractionSource indica quem produziu os campos do documento.
type ExtractionSource string

// Origens possíveis de um EmployeeDocument.
const (
	SourceDeterministic ExtractionSource = "regex"
	SourceOracle        ExtractionSource = "ia"
)

// --- Modelos da folha ---

// PayEvent representa uma verba (linha do quadro de proventos/descontos).
// Após a conciliação, no máximo um entre Earning e Deduction é válido.
type PayEvent struct {
	Code        string              `json:"codigo"`
	Description string              `json:"descricao"`
	Reference   string              `json:"referencia,omitempty"`
	Earning     decimal.NullDecimal `json:"provento"`
	Deduction   decimal.NullDecimal `json:"desconto"`
}

// Amount devolve o valor não nulo da verba e se ele é provento.
func (e PayEvent) Amount() (decimal.Decimal, bool) {
	if e.Earning.Valid && !e.Earning.Decimal.IsZero() {
		return e.Earning.Decimal, true
	}
	if e.Deduction.Valid {
		return e.Deduction.Decimal, false
	}
	return decimal.Zero, false
}

// ReconciliationSummary guarda o resultado da busca de conciliação de um documento.
type ReconciliationSummary struct {
	MismatchBefore decimal.Decimal `json:"divergencia_inicial"`
	MismatchAfter  decimal.Decimal `json:"divergencia_final"`
	Flips          int             `json:"inversoes"`
	Passes         int             `json:"passadas"`
	Refined        bool            `json:"refinado_ia"`
}

// EmployeeDocument é o recibo de um colaborador (uma página ou um bloco do extrato).
type EmployeeDocument struct {
	PageIndex          int                   `json:"pagina"`
	Competence         string                `json:"competencia,omitempty"`
	Name               string                `json:"nome,omitempty"`
	CPF                string                `json:"cpf,omitempty"`
	Registration       string                `json:"matricula,omitempty"`
	CBO                string                `json:"cbo,omitempty"`
	Department         string                `json:"departamento,omitempty"`
	Role               string                `json:"cargo,omitempty"`
	DeclaredEarnings   decimal.NullDecimal   `json:"total_vencimentos"`
	DeclaredDeductions decimal.NullDecimal   `json:"total_descontos"`
	DeclaredNet        decimal.NullDecimal   `json:"liquido"`
	Events             []PayEvent            `json:"eventos"`
	Source             ExtractionSource      `json:"origem"`
	Reconciliation     ReconciliationSummary `json:"conciliacao"`
	RawText            string                `json:"-"`
}

// --- Modelos da planilha de referência ---

// ReferenceRow é uma linha da planilha de salário real.
type ReferenceRow struct {
	Line           int                 `json:"linha"`
	NormalizedName string              `json:"-"`
	DisplayName    string              `json:"nome"`
	ReferenceGross decimal.NullDecimal `json:"bruto_referencial"`
	Status         string              `json:"status,omitempty"`
	Department     string              `json:"departamento,omitempty"`
	Role           string              `json:"cargo,omitempty"`
	CPF            string              `json:"cpf,omitempty"`
	Registration   string              `json:"matricula,omitempty"`
}

// MatchResult é o resultado da busca de um colaborador na planilha.
type MatchResult struct {
	ReferenceGross decimal.NullDecimal `json:"bruto_referencial"`
	Status         string              `json:"status,omitempty"`
	Department     string              `json:"departamento,omitempty"`
	Role           string              `json:"cargo,omitempty"`
	ResolvedName   string              `json:"nome_planilha,omitempty"`
	Score          float64             `json:"match_score"`
	Method         MatchMethod         `json:"match_method"`
}

// NoMatch é o resultado nulo do matcher.
func NoMatch() MatchResult {
	return MatchResult{Method: MatchNone}
}

// --- Saída ---

// OutputRow é a linha final do relatório: documento + match + complemento.
type OutputRow struct {
	Competence           string              `json:"competencia"`
	Name                 string              `json:"nome"`
	CPF                  string              `json:"cpf"`
	Registration         string              `json:"matricula"`
	Department           string              `json:"departamento"`
	Role                 string              `json:"cargo"`
	PlannedRole          string              `json:"cargo_plano"`
	Status               string              `json:"status"`
	ReferenceGross       decimal.NullDecimal `json:"bruto_referencial_planilha"`
	DeclaredNet          decimal.NullDecimal `json:"liquido_folha"`
	DeclaredEarnings     decimal.NullDecimal `json:"total_vencimentos"`
	DeclaredDeductions   decimal.NullDecimal `json:"total_descontos"`
	ContractedSalary     decimal.Decimal     `json:"verba_8781_salario_contratual"`
	AdvanceDeduction     decimal.Decimal     `json:"verba_981_desc_adiantamento"`
	WithholdingDeduction decimal.Decimal     `json:"irrf"`
	ReferenceDays        decimal.Decimal     `json:"dias_referencia"`
	ProportionalGross    decimal.NullDecimal `json:"bruto_proporcional"`
	OtherEarnings        decimal.Decimal     `json:"outros_proventos"`
	OtherDeductions      decimal.Decimal     `json:"outros_descontos"`
	Rule                 string              `json:"regra_aplicada"`
	Payable              decimal.NullDecimal `json:"valor_a_pagar"`
	MatchScore           float64             `json:"match_score"`
	MatchMethod          MatchMethod         `json:"match_method"`
	ReferenceName        string              `json:"nome_planilha"`
	Review               bool                `json:"revisar"`
	Notes                string              `json:"notas"`
	Events               []PayEvent          `json:"eventos_folha"`
	PageIndex            int                 `json:"pagina"`
}

// Report agrupa as linhas processadas de um lote.
type Report struct {
	RunID      string      `json:"execucao"`
	Competence string      `json:"competencia"`
	Layout     Layout      `json:"layout"`
	Rows       []OutputRow `json:"linhas"`
	Review     []OutputRow `json:"revisar"`
}
