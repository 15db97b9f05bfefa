// Package complemento orquestra o lote: páginas do PDF, extração da folha, busca na planilha
// de referência e cálculo do complemento de cada colaborador.
package complemento

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"complemento-service/internal/core/brl"
	"complemento-service/internal/core/cargos"
	"complemento-service/internal/core/complement"
	"complemento-service/internal/core/matching"
	"complemento-service/internal/core/payroll"
	"complemento-service/internal/core/reference"
	"complemento-service/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrPDFIlegivel indica que o PDF não pôde ser lido ou não tem texto extraível.
	ErrPDFIlegivel = errors.New("PDF da folha ilegível ou sem texto")
	// ErrLayoutInvalido indica um layout de folha desconhecido.
	ErrLayoutInvalido = errors.New("layout de folha inválido (use recibo ou extrato)")
)

// PageReader extrai o texto de cada página do PDF, na ordem.
type PageReader interface {
	ReadPages(ctx context.Context, r io.ReaderAt, size int64) ([]string, error)
}

// PageReaderFunc adapta uma função a PageReader.
type PageReaderFunc func(ctx context.Context, r io.ReaderAt, size int64) ([]string, error)

// ReadPages implementa PageReader.
func (f PageReaderFunc) ReadPages(ctx context.Context, r io.ReaderAt, size int64) ([]string, error) {
	return f(ctx, r, size)
}

// Input é um lote a processar.
type Input struct {
	PDF               io.ReaderAt
	PDFSize           int64
	Reference         io.Reader
	ReferenceFilename string
	Layout            domain.Layout
	UseOracle         bool
}

// Oracles são os colaboradores externos opcionais; campos nulos desligam cada um.
type Oracles struct {
	Extraction    payroll.ExtractionOracle
	Refiner       payroll.Refiner
	Disambiguator matching.Disambiguator
}

// Service define a interface do processamento de complemento.
type Service interface {
	Process(ctx context.Context, in Input) (*domain.Report, error)
	Rules() complement.Rules
}

type service struct {
	pages   PageReader
	calc    *complement.Calculator
	oracles Oracles
	workers int
	logger  *zap.Logger
}

// Option configura o serviço.
type Option func(*service)

// WithOracles registra os oráculos usados quando Input.UseOracle é verdadeiro.
func WithOracles(o Oracles) Option {
	return func(s *service) {
		s.oracles = o
	}
}

// WithWorkers define quantos documentos são processados em paralelo.
func WithWorkers(n int) Option {
	return func(s *service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger define o logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService cria uma nova instância do serviço de complemento.
func NewService(pages PageReader, rules complement.Rules, opts ...Option) Service {
	s := &service{
		pages:   pages,
		calc:    complement.NewCalculator(rules),
		workers: 1,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseLayout valida o layout informado; vazio equivale a recibo.
func ParseLayout(s string) (domain.Layout, error) {
	switch domain.Layout(strings.ToLower(strings.TrimSpace(s))) {
	case "", domain.LayoutRecibo:
		return domain.LayoutRecibo, nil
	case domain.LayoutExtrato:
		return domain.LayoutExtrato, nil
	}
	return "", fmt.Errorf("%w: %q", ErrLayoutInvalido, s)
}

func (s *service) Rules() complement.Rules {
	return s.calc.Rules()
}

func (s *service) Process(ctx context.Context, in Input) (*domain.Report, error) {
	started := time.Now()
	runID := uuid.NewString()
	log := s.logger.With(zap.String("execucao", runID))

	layout, err := ParseLayout(string(in.Layout))
	if err != nil {
		return nil, err
	}

	pages, err := s.pages.ReadPages(ctx, in.PDF, in.PDFSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFIlegivel, err)
	}
	if blank(pages) {
		return nil, ErrPDFIlegivel
	}

	tbl, err := reference.Load(in.Reference, in.ReferenceFilename)
	if err != nil {
		return nil, fmt.Errorf("erro ao carregar planilha de referência: %w", err)
	}

	parser := s.parser(in.UseOracle, log)
	var (
		docs       []domain.EmployeeDocument
		competence string
	)
	switch layout {
	case domain.LayoutExtrato:
		docs, competence = parser.ParseStatement(ctx, pages)
	default:
		docs = parser.ParseReceipts(ctx, pages)
		competence = firstCompetence(docs)
		if competence == "" {
			competence = payroll.Competence(strings.Join(pages, "\n"))
		}
	}

	matcher := s.matcher(in.UseOracle, log)
	rows := make([]domain.OutputRow, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			match := matcher.FindReference(gctx, tbl, doc.CPF, doc.Registration, doc.Name)
			rows[i] = s.buildRow(doc, match, competence)
			log.Debug("colaborador processado",
				zap.Int("pagina", doc.PageIndex),
				zap.String("nome", doc.Name),
				zap.String("metodo", string(match.Method)),
				zap.Float64("score", match.Score),
				zap.String("regra", rows[i].Rule),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("processamento interrompido: %w", err)
	}

	report := &domain.Report{
		RunID:      runID,
		Competence: competence,
		Layout:     layout,
	}
	for _, row := range rows {
		if row.Review {
			report.Review = append(report.Review, row)
		} else {
			report.Rows = append(report.Rows, row)
		}
	}

	log.Info("lote de complemento processado",
		zap.String("layout", string(layout)),
		zap.String("competencia", competence),
		zap.Int("paginas", len(pages)),
		zap.Int("planilha", tbl.Len()),
		zap.Int("ok", len(report.Rows)),
		zap.Int("revisar", len(report.Review)),
		zap.Duration("duracao", time.Since(started)),
	)
	return report, nil
}

func (s *service) parser(useOracle bool, log *zap.Logger) *payroll.Parser {
	rules := s.calc.Rules()
	deductionCodes := append(append([]string{}, rules.AdvanceCodes...), rules.WithholdingCodes...)
	critical := append(append([]string{}, rules.BaseCodes...), deductionCodes...)

	opts := []payroll.Option{
		payroll.WithClassifier(payroll.NewClassifier(rules.BaseCodes, deductionCodes)),
		payroll.WithCriticalCodes(critical...),
		payroll.WithWorkers(s.workers),
		payroll.WithLogger(log),
	}
	if useOracle {
		if s.oracles.Extraction != nil {
			opts = append(opts, payroll.WithExtractionOracle(s.oracles.Extraction))
		}
		if s.oracles.Refiner != nil {
			opts = append(opts, payroll.WithRefiner(s.oracles.Refiner))
		}
	}
	return payroll.NewParser(opts...)
}

func (s *service) matcher(useOracle bool, log *zap.Logger) *matching.Matcher {
	opts := []matching.Option{matching.WithLogger(log)}
	if useOracle && s.oracles.Disambiguator != nil {
		opts = append(opts, matching.WithDisambiguator(s.oracles.Disambiguator))
	}
	return matching.NewMatcher(opts...)
}

// buildRow junta documento, match e cálculo numa linha do relatório.
func (s *service) buildRow(doc domain.EmployeeDocument, match domain.MatchResult, competence string) domain.OutputRow {
	res := s.calc.Compute(complement.Input{
		Name:           doc.Name,
		CPF:            doc.CPF,
		Status:         match.Status,
		ReferenceGross: match.ReferenceGross,
		DeclaredNet:    doc.DeclaredNet,
		Events:         doc.Events,
	})

	notes := append([]string{}, res.Notes...)
	if residual := doc.Reconciliation.MismatchAfter; residual.GreaterThan(payroll.ReconcileTolerance) {
		notes = append(notes, "verbas divergem dos totais em R$ "+brl.FormatBRL(residual))
	}

	department := firstNonEmpty(doc.Department, match.Department)
	role := firstNonEmpty(doc.Role, match.Role)
	if doc.Competence != "" {
		competence = doc.Competence
	}

	return domain.OutputRow{
		Competence:           competence,
		Name:                 doc.Name,
		CPF:                  doc.CPF,
		Registration:         doc.Registration,
		Department:           department,
		Role:                 role,
		PlannedRole:          cargos.Suggest(match.ReferenceGross, role, department),
		Status:               match.Status,
		ReferenceGross:       match.ReferenceGross,
		DeclaredNet:          doc.DeclaredNet,
		DeclaredEarnings:     doc.DeclaredEarnings,
		DeclaredDeductions:   doc.DeclaredDeductions,
		ContractedSalary:     res.ContractedSalary,
		AdvanceDeduction:     res.AdvanceDeduction,
		WithholdingDeduction: res.WithholdingDeduction,
		ReferenceDays:        res.ReferenceDays,
		ProportionalGross:    res.ProportionalGross,
		OtherEarnings:        res.OtherEarnings,
		OtherDeductions:      res.OtherDeductions,
		Rule:                 res.Rule,
		Payable:              res.Payable,
		MatchScore:           match.Score,
		MatchMethod:          match.Method,
		ReferenceName:        match.ResolvedName,
		Review:               res.Review,
		Notes:                strings.Join(notes, "; "),
		Events:               doc.Events,
		PageIndex:            doc.PageIndex,
	}
}

func blank(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}

func firstCompetence(docs []domain.EmployeeDocument) string {
	for _, d := range docs {
		if d.Competence != "" {
			return d.Competence
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
