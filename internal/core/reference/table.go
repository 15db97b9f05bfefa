package reference

import (
	"strings"

	"complemento-service/internal/core/brl"
	"complemento-service/internal/domain"
)

// Table é a planilha de referência carregada em memória, com índices prontos.
// Não é alterada depois de construída, então pode ser lida por várias goroutines.
type Table struct {
	rows           []domain.ReferenceRow
	byName         map[string][]int
	byCPF          map[string][]int
	byRegistration map[string][]int
}

// NewTable monta os índices de nome normalizado, CPF (somente dígitos) e matrícula.
func NewTable(rows []domain.ReferenceRow) *Table {
	t := &Table{
		rows:           make([]domain.ReferenceRow, 0, len(rows)),
		byName:         make(map[string][]int, len(rows)),
		byCPF:          make(map[string][]int),
		byRegistration: make(map[string][]int),
	}
	for _, r := range rows {
		if r.NormalizedName == "" {
			r.NormalizedName = brl.NormalizeName(r.DisplayName)
		}
		r.CPF = brl.Digits(r.CPF)
		r.Registration = normalizeRegistration(r.Registration)

		idx := len(t.rows)
		t.rows = append(t.rows, r)
		if r.NormalizedName != "" {
			t.byName[r.NormalizedName] = append(t.byName[r.NormalizedName], idx)
		}
		if r.CPF != "" {
			t.byCPF[r.CPF] = append(t.byCPF[r.CPF], idx)
		}
		if r.Registration != "" {
			t.byRegistration[r.Registration] = append(t.byRegistration[r.Registration], idx)
		}
	}
	return t
}

// normalizeRegistration remove zeros à esquerda e espaços de matrículas numéricas.
func normalizeRegistration(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	if d := brl.Digits(s); d != "" && d == s {
		trimmed := strings.TrimLeft(d, "0")
		if trimmed == "" {
			return "0"
		}
		return trimmed
	}
	return strings.ToUpper(s)
}

// Len devolve o número de linhas.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Rows devolve as linhas na ordem da planilha. O slice não deve ser alterado.
func (t *Table) Rows() []domain.ReferenceRow {
	if t == nil {
		return nil
	}
	return t.rows
}

// Row devolve a linha de índice i.
func (t *Table) Row(i int) domain.ReferenceRow {
	return t.rows[i]
}

// HasCPF indica se a planilha tem algum CPF preenchido.
func (t *Table) HasCPF() bool {
	return t != nil && len(t.byCPF) > 0
}

// HasRegistration indica se a planilha tem alguma matrícula preenchida.
func (t *Table) HasRegistration() bool {
	return t != nil && len(t.byRegistration) > 0
}

// ByCPF devolve os índices das linhas com o CPF informado (qualquer formatação).
func (t *Table) ByCPF(cpf string) []int {
	if t == nil {
		return nil
	}
	return t.byCPF[brl.Digits(cpf)]
}

// ByRegistration devolve os índices das linhas com a matrícula informada.
func (t *Table) ByRegistration(reg string) []int {
	if t == nil {
		return nil
	}
	key := normalizeRegistration(reg)
	if key == "" {
		return nil
	}
	return t.byRegistration[key]
}

// ByName devolve os índices das linhas cujo nome normalizado é igual ao informado.
func (t *Table) ByName(name string) []int {
	if t == nil {
		return nil
	}
	return t.byName[brl.NormalizeName(name)]
}
