package reference

import (
	"strings"

	"complemento-service/internal/core/brl"
)

// Listas de cabeçalhos candidatos, em ordem de prioridade.
var (
	NameColumns         = []string{"NOME", "COLABORADOR", "FUNCIONARIO", "EMPREGADO"}
	GrossColumns        = []string{"BRUTO REFERENCIAL", "SALARIO REAL", "BRUTO", "SALARIO"}
	CPFColumns          = []string{"CPF"}
	RegistrationColumns = []string{"MATRICULA", "MATR", "CODIGO"}
	StatusColumns       = []string{"STATUS", "SITUACAO", "ATIVO"}
	DepartmentColumns   = []string{"DEPARTAMENTO", "DEPTO", "SETOR", "AREA"}
	RoleColumns         = []string{"CARGO", "FUNCAO"}
)

// positionalMinColumns é o mínimo de colunas para aplicar o fallback posicional
// (primeira coluna = nome, segunda = bruto).
const positionalMinColumns = 2

// maxHeaderSearchRows limita a busca pela linha de cabeçalho.
const maxHeaderSearchRows = 40

// DetectColumn procura a coluna cujo cabeçalho corresponde a um dos candidatos.
// Primeiro compara nomes exatos (sem acento e sem caixa), na ordem dos candidatos;
// depois aceita o primeiro cabeçalho que contenha algum candidato. Retorna -1 se nada bater.
func DetectColumn(headers []string, candidates []string) int {
	normHeaders := make([]string, len(headers))
	for i, h := range headers {
		normHeaders[i] = brl.NormalizeName(h)
	}

	for _, cand := range candidates {
		nc := brl.NormalizeName(cand)
		for idx, h := range normHeaders {
			if h != "" && h == nc {
				return idx
			}
		}
	}

	for idx, h := range normHeaders {
		if h == "" {
			continue
		}
		for _, cand := range candidates {
			if strings.Contains(h, brl.NormalizeName(cand)) {
				return idx
			}
		}
	}
	return -1
}

// columnMap guarda os índices detectados; -1 significa ausente.
type columnMap struct {
	name, gross, cpf, registration, status, department, role int
}

func detectColumns(header []string, width int) columnMap {
	cols := columnMap{
		name:         DetectColumn(header, NameColumns),
		gross:        DetectColumn(header, GrossColumns),
		cpf:          DetectColumn(header, CPFColumns),
		registration: DetectColumn(header, RegistrationColumns),
		status:       DetectColumn(header, StatusColumns),
		department:   DetectColumn(header, DepartmentColumns),
		role:         DetectColumn(header, RoleColumns),
	}

	if width >= positionalMinColumns {
		if cols.name == -1 && !cols.uses(0) {
			cols.name = 0
		}
		if cols.gross == -1 && !cols.uses(1) {
			cols.gross = 1
		}
	}
	return cols
}

func (c columnMap) uses(idx int) bool {
	for _, v := range [...]int{c.name, c.gross, c.cpf, c.registration, c.status, c.department, c.role} {
		if v == idx {
			return true
		}
	}
	return false
}

// findHeaderRow devolve o índice da linha de cabeçalho, ou -1 quando a planilha não tem
// cabeçalho reconhecível e os dados começam na primeira linha.
func findHeaderRow(rows [][]string) int {
	limit := maxHeaderSearchRows
	if len(rows) < limit {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		if DetectColumn(rows[i], NameColumns) != -1 {
			return i
		}
	}
	if len(rows) == 0 {
		return -1
	}
	// sem cabeçalho conhecido: se a segunda célula da primeira linha já é um valor,
	// a planilha não tem cabeçalho.
	first := rows[0]
	if len(first) >= positionalMinColumns && brl.ParseCurrency(first[1]).Valid {
		return -1
	}
	return 0
}
