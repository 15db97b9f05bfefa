package payroll

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"complemento-service/internal/core/brl"
	"complemento-service/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	blockStartRegex   = regexp.MustCompile(`(?i)\bEmpr\.:\s*`)
	statementNetRegex = regexp.MustCompile(`(?i)Valor\s+L[ií]quido\s*[:\-]?\s*(` + moneyPattern + `)`)
	looseNetRegex     = regexp.MustCompile(`(?is)\bL[ií]quido\b.*?(` + moneyPattern + `)`)
	departmentRegex   = regexp.MustCompile(`(?i)\bDepto\.?\s*[:\-]?\s*(\d+)`)
)

// Palavras que identificam linhas de cabeçalho do extrato, nunca cargo.
var statementHeaderWords = []string{"EMPR", "EMPRESA", "CNPJ", "FOLHA", "EXTRATO", "MENSALISTA"}

// minRoleLength descarta siglas soltas em caixa alta.
const minRoleLength = 8

// SplitStatement junta as páginas do extrato mensal e corta um bloco por colaborador a cada
// "Empr.:". Devolve também a competência do cabeçalho.
func SplitStatement(pages []string) ([]string, string) {
	full := strings.Join(pages, "\n")
	competence := competenceFrom(full)

	starts := blockStartRegex.FindAllStringIndex(full, -1)
	blocks := make([]string, 0, len(starts))
	for i, loc := range starts {
		end := len(full)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		blocks = append(blocks, full[loc[0]:end])
	}
	return blocks, competence
}

// ParseStatement processa o extrato mensal inteiro, bloco a bloco.
func (p *Parser) ParseStatement(ctx context.Context, pages []string) ([]domain.EmployeeDocument, string) {
	blocks, competence := SplitStatement(pages)
	docs := p.parseAll(ctx, len(blocks), func(ctx context.Context, i int) (domain.EmployeeDocument, bool) {
		return p.ParseStatementBlock(ctx, i, blocks[i], competence)
	})
	return docs, competence
}

// ParseStatementBlock extrai um colaborador do extrato. As linhas de verba terminam com
// "P" (provento) ou "D" (desconto), que definem a coluna do valor.
func (p *Parser) ParseStatementBlock(ctx context.Context, idx int, block, competence string) (domain.EmployeeDocument, bool) {
	doc := domain.EmployeeDocument{
		PageIndex:  idx,
		Competence: competence,
		Source:     domain.SourceDeterministic,
		RawText:    block,
	}
	id := identityFrom(block)
	doc.Name, doc.CPF, doc.CBO = id.name, id.cpf, id.cbo
	if m := employerCodeRegex.FindStringSubmatch(block); m != nil {
		doc.Registration = m[1]
	}
	doc.Role = statementRole(block)
	if m := departmentRegex.FindStringSubmatch(block); m != nil {
		doc.Department = m[1]
	}
	doc.DeclaredEarnings, doc.DeclaredDeductions, _ = totalsFrom(block)
	doc.DeclaredNet = firstMoney(statementNetRegex, block)
	if !doc.DeclaredNet.Valid {
		doc.DeclaredNet = firstMoney(looseNetRegex, block)
	}
	doc.Events = p.statementEvents(block)
	doc.Events = p.markedFallback(doc.Events, block)

	if p.oracle != nil && (doc.Name == "" || doc.CPF == "") {
		ext, err := p.oracle.ExtractPage(ctx, block)
		switch {
		case err != nil:
			p.logger.Warn("falha na identificação por IA", zap.Int("bloco", idx), zap.Error(err))
		case ext != nil:
			if doc.Name == "" && strings.TrimSpace(ext.Name) != "" {
				doc.Name = brl.TitleName(ext.Name)
				doc.Source = domain.SourceOracle
			}
			if doc.CPF == "" {
				if cpf := formatCPF(ext.CPF); cpf != "" {
					doc.CPF = cpf
					doc.Source = domain.SourceOracle
				}
			}
		}
	}

	if doc.CPF == "" && doc.Name == "" && !doc.DeclaredNet.Valid && len(doc.Events) == 0 {
		return domain.EmployeeDocument{}, false
	}
	p.reconciler.ReconcileDocument(ctx, &doc)
	return doc, true
}

func (p *Parser) statementEvents(block string) []domain.PayEvent {
	var events []domain.PayEvent
	seen := make(map[string]struct{})
	for _, line := range strings.Split(block, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		marker := PolarityUnknown
		switch strings.ToUpper(fields[len(fields)-1]) {
		case "P":
			marker = PolarityEarning
		case "D":
			marker = PolarityDeduction
		}
		if marker != PolarityUnknown {
			fields = fields[:len(fields)-1]
		}

		ev, ok := p.classifier.ParseEventLine(strings.Join(fields, " "))
		if !ok {
			continue
		}
		if marker != PolarityUnknown {
			value, _ := ev.Amount()
			ev.Earning, ev.Deduction = decimal.NullDecimal{}, decimal.NullDecimal{}
			if marker == PolarityEarning {
				ev.Earning = decimal.NewNullDecimal(value)
			} else {
				ev.Deduction = decimal.NewNullDecimal(value)
			}
		}
		events = appendUnique(events, seen, ev)
	}
	return events
}

// markedFallback procura "CÓDIGO ... VALOR P|D" no bloco inteiro para os códigos críticos
// ausentes, respeitando a polaridade que o código exige.
func (p *Parser) markedFallback(events []domain.PayEvent, block string) []domain.PayEvent {
	flat := strings.ReplaceAll(block, "\n", " ")
	for _, code := range p.criticalCodes {
		if hasCode(events, code) {
			continue
		}
		hint := p.classifier.CodeHint(code)
		marker := "P"
		if hint == PolarityDeduction {
			marker = "D"
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(code) + `\b.*?(` + moneyPattern + `)\s*` + marker + `\b`)
		m := re.FindStringSubmatch(flat)
		if m == nil {
			continue
		}
		v := brl.ParseCurrency(m[1])
		if !v.Valid || v.Decimal.IsZero() {
			continue
		}
		ev := domain.PayEvent{Code: code, Description: FallbackDescription}
		if marker == "D" {
			ev.Deduction = v
		} else {
			ev.Earning = v
		}
		events = append(events, ev)
	}
	return events
}

// statementRole devolve a primeira linha em caixa alta, sem dígitos, que não é cabeçalho.
func statementRole(block string) string {
	for _, line := range strings.Split(block, "\n") {
		u := strings.TrimSpace(line)
		if len([]rune(u)) < minRoleLength || strings.ToUpper(u) != u || strings.ContainsAny(u, "0123456789") {
			continue
		}
		if !strings.ContainsFunc(u, unicode.IsLetter) {
			continue
		}
		header := false
		for _, w := range statementHeaderWords {
			if strings.Contains(u, w) {
				header = true
				break
			}
		}
		if header {
			continue
		}
		return brl.TitleName(u)
	}
	return ""
}
