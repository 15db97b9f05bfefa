package payroll

import (
	"context"
	"regexp"
	"strings"

	"complemento-service/internal/core/brl"
	"complemento-service/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const moneyPattern = `\b\d{1,3}(?:\.\d{3})*,\d{2}\b`

var (
	moneyRegex           = regexp.MustCompile(moneyPattern)
	cpfRegex             = regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b`)
	mensalistaRegex      = regexp.MustCompile(`(?i)\bMensalista\s+(\p{L}+)\s+de\s+(20\d{2})\b`)
	competenceLabelRegex = regexp.MustCompile(`(?i)\bComp(?:et[êe]ncia)?\s*[:\-]?\s*(\d{2}/\d{4})\b`)
	competenceAnyRegex   = regexp.MustCompile(`\b\d{2}/\d{4}\b`)
	nameLabelRegex       = regexp.MustCompile(`(?i)\bNome\s*[:\-]\s*(.+)`)
	totalEarningsRegex   = regexp.MustCompile(`(?is)Total\s+de\s+Vencimentos.*?(` + moneyPattern + `)`)
	totalDeductionsRegex = regexp.MustCompile(`(?is)Total\s+de\s+Descontos.*?(` + moneyPattern + `)`)
	netRegex             = regexp.MustCompile(`(?is)Valor\s+L[ií]quido.*?(` + moneyPattern + `)`)
	registrationRegexes  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bMATR[IÍ]CULA\b\s*[:\-]?\s*(\d{2,10})`),
		regexp.MustCompile(`(?i)\bMAT\b\s*[:\-]?\s*(\d{2,10})`),
		employerCodeRegex,
	}
	employerCodeRegex = regexp.MustCompile(`(?i)\bEmpr\.:\s*(\d+)`)
	roleRegex         = regexp.MustCompile(`(?m)^\s*([A-ZÁÉÍÓÚÂÊÔÃÕÇ][A-ZÁÉÍÓÚÂÊÔÃÕÇ ]{6,})\s+PIS\b`)
	digitsRegex       = regexp.MustCompile(`^\d+$`)
	cboRegex          = regexp.MustCompile(`^\d{4,6}$`)
)

var monthsPT = map[string]string{
	"JANEIRO": "01", "FEVEREIRO": "02", "MARCO": "03", "ABRIL": "04",
	"MAIO": "05", "JUNHO": "06", "JULHO": "07", "AGOSTO": "08",
	"SETEMBRO": "09", "OUTUBRO": "10", "NOVEMBRO": "11", "DEZEMBRO": "12",
}

// DefaultCriticalCodes são as verbas procuradas linha a linha quando a extração as perde.
var DefaultCriticalCodes = []string{"8781", "981", "998"}

// FallbackDescription marca verbas recuperadas pela busca de códigos críticos.
const FallbackDescription = "AUTO-FALLBACK"

// Parser transforma o texto das páginas em documentos conciliados.
type Parser struct {
	classifier    *Classifier
	oracle        ExtractionOracle
	refiner       Refiner
	reconciler    *Reconciler
	criticalCodes []string
	workers       int
	logger        *zap.Logger
}

// Option configura o Parser.
type Option func(*Parser)

// WithClassifier troca a tabela de códigos.
func WithClassifier(c *Classifier) Option {
	return func(p *Parser) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithExtractionOracle liga a extração externa.
func WithExtractionOracle(o ExtractionOracle) Option {
	return func(p *Parser) { p.oracle = o }
}

// WithRefiner liga o refinamento externo da conciliação.
func WithRefiner(r Refiner) Option {
	return func(p *Parser) { p.refiner = r }
}

// WithCriticalCodes define os códigos da busca de recuperação.
func WithCriticalCodes(codes ...string) Option {
	return func(p *Parser) { p.criticalCodes = codes }
}

// WithWorkers define quantas páginas/blocos são processados em paralelo (mínimo 1).
func WithWorkers(n int) Option {
	return func(p *Parser) { p.workers = n }
}

// WithLogger define o logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewParser cria um parser; sem oráculos ele é totalmente determinístico.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		classifier:    DefaultClassifier(),
		criticalCodes: DefaultCriticalCodes,
		workers:       1,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.reconciler = NewReconciler(p.classifier, p.refiner, p.logger)
	return p
}

// ParseReceipts processa cada página como um recibo. Páginas que não parecem holerite são
// ignoradas. A competência encontrada em uma página completa as que não a trazem.
func (p *Parser) ParseReceipts(ctx context.Context, pages []string) []domain.EmployeeDocument {
	docs := p.parseAll(ctx, len(pages), func(ctx context.Context, i int) (domain.EmployeeDocument, bool) {
		return p.ParseReceiptPage(ctx, i, pages[i])
	})

	global := ""
	for _, doc := range docs {
		if doc.Competence != "" {
			global = doc.Competence
			break
		}
	}
	if global == "" {
		global = competenceAnyRegex.FindString(strings.Join(pages, "\n"))
	}
	for i := range docs {
		if docs[i].Competence == "" {
			docs[i].Competence = global
		}
	}
	return docs
}

// ParseReceiptPage extrai um recibo de uma página. Retorna false quando a página não tem
// cara de holerite (sem MENSALISTA, sem VALOR LÍQUIDO e sem nenhuma linha de verba).
func (p *Parser) ParseReceiptPage(ctx context.Context, idx int, text string) (domain.EmployeeDocument, bool) {
	if strings.TrimSpace(text) == "" {
		return domain.EmployeeDocument{}, false
	}
	events := p.classifier.ExtractEvents(text)
	upper := brl.NormalizeName(text)
	if !strings.Contains(upper, "MENSALISTA") && !strings.Contains(upper, "VALOR LIQUIDO") && len(events) == 0 {
		return domain.EmployeeDocument{}, false
	}

	doc := domain.EmployeeDocument{
		PageIndex:  idx,
		Competence: competenceFrom(text),
		Events:     events,
		Source:     domain.SourceDeterministic,
		RawText:    text,
	}
	id := identityFrom(text)
	doc.Name, doc.CPF, doc.CBO, doc.Department = id.name, id.cpf, id.cbo, id.department
	if doc.Name == "" {
		doc.Name = nameFromLabel(text)
	}
	doc.Registration = registrationFrom(text)
	doc.Role = roleFrom(text)
	doc.DeclaredEarnings, doc.DeclaredDeductions, doc.DeclaredNet = totalsFrom(text)

	p.applyOracle(ctx, &doc, text)
	doc.Events = p.criticalFallback(doc.Events, text)
	p.reconciler.ReconcileDocument(ctx, &doc)

	p.logger.Debug("recibo extraído",
		zap.Int("pagina", idx),
		zap.String("cpf", doc.CPF),
		zap.Int("verbas", len(doc.Events)),
		zap.String("origem", string(doc.Source)),
	)
	return doc, true
}

func (p *Parser) applyOracle(ctx context.Context, doc *domain.EmployeeDocument, text string) {
	if p.oracle == nil {
		return
	}
	ext, err := p.oracle.ExtractPage(ctx, text)
	if err != nil {
		p.logger.Warn("falha na extração por IA; usando extração determinística",
			zap.Int("pagina", doc.PageIndex), zap.Error(err))
		return
	}
	mergeOracle(doc, ext)
}

// criticalFallback procura, linha a linha, códigos críticos ausentes da lista de verbas.
// O último valor monetário da linha vale; "D" isolado ou "DESCON" na linha indicam desconto.
func (p *Parser) criticalFallback(events []domain.PayEvent, text string) []domain.PayEvent {
	lines := strings.Split(text, "\n")
	for _, code := range p.criticalCodes {
		if hasCode(events, code) {
			continue
		}
		earn, ded := decimal.Zero, decimal.Zero
		for _, line := range lines {
			if !lineHasToken(line, code) {
				continue
			}
			money := moneyRegex.FindAllString(line, -1)
			if len(money) == 0 {
				continue
			}
			v := brl.ParseCurrency(money[len(money)-1])
			if !v.Valid {
				continue
			}
			if hasDeductionMarker(line) || p.classifier.CodeHint(code) == PolarityDeduction {
				ded = ded.Add(v.Decimal)
			} else {
				earn = earn.Add(v.Decimal)
			}
		}
		if !earn.IsPositive() && !ded.IsPositive() {
			continue
		}
		ev := domain.PayEvent{Code: code, Description: FallbackDescription}
		if earn.IsPositive() {
			ev.Earning = decimal.NewNullDecimal(earn)
		}
		if ded.IsPositive() {
			ev.Deduction = decimal.NewNullDecimal(ded)
		}
		events = append(events, ev)
	}
	return events
}

func lineHasToken(line, tok string) bool {
	for _, f := range strings.Fields(line) {
		if f == tok {
			return true
		}
	}
	return false
}

func hasDeductionMarker(line string) bool {
	return lineHasToken(line, "D") || strings.Contains(strings.ToUpper(line), "DESCON")
}

// ---------------------- campos do cabeçalho ----------------------

type identity struct {
	name, cpf, cbo, department string
}

// identityFrom lê a linha do CPF: "19 ALANA DE OLIVEIRA ROSA 087.724.856-71 411030 1 1".
// Antes do CPF vem o nome (sem códigos numéricos e rótulos iniciais); depois, CBO e departamento.
func identityFrom(text string) identity {
	cpf := cpfRegex.FindString(text)
	if cpf == "" {
		return identity{}
	}
	id := identity{cpf: cpf}
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, cpf) {
			continue
		}
		parts := strings.Fields(line)
		pos := -1
		for i, part := range parts {
			if cpfRegex.MatchString(part) && strings.Contains(part, cpf) {
				pos = i
				break
			}
		}
		if pos < 0 {
			break
		}
		before := parts[:pos]
		for len(before) > 0 && (digitsRegex.MatchString(before[0]) || strings.HasSuffix(before[0], ":")) {
			before = before[1:]
		}
		id.name = brl.TitleName(strings.Join(before, " "))

		after := parts[pos+1:]
		if len(after) >= 1 && cboRegex.MatchString(after[0]) {
			id.cbo = after[0]
		}
		if len(after) >= 2 && digitsRegex.MatchString(after[1]) {
			id.department = after[1]
		}
		break
	}
	return id
}

func nameFromLabel(text string) string {
	m := nameLabelRegex.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	name, _, _ := strings.Cut(strings.TrimSpace(m[1]), "  ")
	if loc := cpfRegex.FindStringIndex(name); loc != nil {
		name = name[:loc[0]]
	}
	return brl.TitleName(name)
}

// Competence devolve a competência (MM/AAAA) encontrada no texto, ou "".
func Competence(text string) string {
	return competenceFrom(text)
}

// competenceFrom devolve MM/AAAA: cabeçalho "Mensalista <mês> de <ano>", rótulo
// "Competência:" ou o primeiro MM/AAAA do texto.
func competenceFrom(text string) string {
	if m := mensalistaRegex.FindStringSubmatch(text); m != nil {
		if mm, ok := monthsPT[brl.NormalizeName(m[1])]; ok {
			return mm + "/" + m[2]
		}
	}
	if m := competenceLabelRegex.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return competenceAnyRegex.FindString(text)
}

func registrationFrom(text string) string {
	for _, re := range registrationRegexes {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// roleFrom pega a linha em caixa alta imediatamente antes de "PIS".
func roleFrom(text string) string {
	m := roleRegex.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return brl.TitleName(m[1])
}

// totalsFrom lê Total de Vencimentos, Total de Descontos e Valor Líquido. Também trata o
// rodapé em que os dois rótulos de total dividem a linha e os valores vêm na linha seguinte.
func totalsFrom(text string) (earnings, deductions, net decimal.NullDecimal) {
	earnings = firstMoney(totalEarningsRegex, text)
	deductions = firstMoney(totalDeductionsRegex, text)
	net = firstMoney(netRegex, text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		norm := brl.NormalizeName(line)
		if !strings.Contains(norm, "TOTAL DE VENCIMENTOS") || !strings.Contains(norm, "TOTAL DE DESCONTOS") {
			continue
		}
		if moneyRegex.MatchString(line) || i+1 >= len(lines) {
			break
		}
		if values := moneyRegex.FindAllString(lines[i+1], -1); len(values) >= 2 {
			earnings = brl.ParseCurrency(values[0])
			deductions = brl.ParseCurrency(values[1])
		}
		break
	}
	return earnings, deductions, net
}

func firstMoney(re *regexp.Regexp, text string) decimal.NullDecimal {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return decimal.NullDecimal{}
	}
	return brl.ParseCurrency(m[1])
}
