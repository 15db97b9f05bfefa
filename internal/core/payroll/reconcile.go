package payroll

import (
	"context"

	"complemento-service/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Parâmetros da busca de conciliação.
var (
	ReconcileTolerance = decimal.RequireFromString("0.01")
	RefineThreshold    = decimal.RequireFromString("2.00")
)

// MaxReconcilePasses limita as passadas completas sobre o conjunto ambíguo.
const MaxReconcilePasses = 50

// RefineRequest é o que vai para o refinamento externo quando a divergência continua alta.
type RefineRequest struct {
	Text               string
	DeclaredEarnings   decimal.NullDecimal
	DeclaredDeductions decimal.NullDecimal
	Events             []domain.PayEvent
	Mismatch           decimal.Decimal
}

// Refiner reclassifica as verbas de um documento (uma única tentativa, sem retry).
type Refiner interface {
	Refine(ctx context.Context, req RefineRequest) ([]domain.PayEvent, error)
}

// Reconciler classifica as verbas e tenta fechar os totais declarados.
type Reconciler struct {
	classifier *Classifier
	refiner    Refiner
	logger     *zap.Logger
}

// NewReconciler cria o conciliador; refiner pode ser nil.
func NewReconciler(classifier *Classifier, refiner Refiner, logger *zap.Logger) *Reconciler {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{classifier: classifier, refiner: refiner, logger: logger}
}

// ReconcileDocument concilia as verbas do documento no lugar.
func (r *Reconciler) ReconcileDocument(ctx context.Context, doc *domain.EmployeeDocument) {
	doc.Events, doc.Reconciliation = r.reconcile(ctx, doc.RawText, doc.Events, doc.DeclaredEarnings, doc.DeclaredDeductions)
}

// Reconcile devolve as verbas classificadas e o resumo da busca.
//
// 1. Polaridade forçada por código/palavra-chave; valores zero viram nulos e cada verba fica
// com no máximo um valor.
// 2. Verbas sem dica e com um único valor formam o conjunto ambíguo.
// 3. Com algum total declarado, inverte verbas ambíguas enquanto a soma dos desvios cair mais
// que ReconcileTolerance, em no máximo MaxReconcilePasses passadas. É uma subida de encosta:
// pode parar num ótimo local.
// 4. Se a divergência passar de RefineThreshold e houver Refiner, uma tentativa de refinamento é
// aceita apenas se reduzir a divergência.
//
// MismatchBefore é medido após o passo 1, então MismatchAfter nunca é maior.
func (r *Reconciler) Reconcile(ctx context.Context, events []domain.PayEvent, declaredEarnings, declaredDeductions decimal.NullDecimal) ([]domain.PayEvent, domain.ReconciliationSummary) {
	return r.reconcile(ctx, "", events, declaredEarnings, declaredDeductions)
}

func (r *Reconciler) reconcile(ctx context.Context, text string, events []domain.PayEvent, declEarn, declDed decimal.NullDecimal) ([]domain.PayEvent, domain.ReconciliationSummary) {
	out, ambiguous := r.classify(events)

	var summary domain.ReconciliationSummary
	if !declEarn.Valid && !declDed.Valid {
		return out, summary
	}

	sumEarn, sumDed := sums(out)
	current := mismatch(sumEarn, sumDed, declEarn, declDed)
	summary.MismatchBefore = current

	for summary.Passes < MaxReconcilePasses {
		summary.Passes++
		improved := false
		for _, i := range ambiguous {
			value, isEarning := out[i].Amount()
			nextEarn, nextDed := sumEarn.Sub(value), sumDed.Add(value)
			if !isEarning {
				nextEarn, nextDed = sumEarn.Add(value), sumDed.Sub(value)
			}
			next := mismatch(nextEarn, nextDed, declEarn, declDed)
			if current.Sub(next).GreaterThan(ReconcileTolerance) {
				flip(&out[i])
				sumEarn, sumDed, current = nextEarn, nextDed, next
				summary.Flips++
				improved = true
			}
		}
		if !improved {
			break
		}
	}

	if r.refiner != nil && current.GreaterThan(RefineThreshold) {
		if refined, ok := r.refine(ctx, text, out, declEarn, declDed, current); ok {
			e, d := sums(refined)
			if m := mismatch(e, d, declEarn, declDed); m.LessThan(current) {
				out, current = refined, m
				summary.Refined = true
			}
		}
	}

	summary.MismatchAfter = current
	return out, summary
}

func (r *Reconciler) refine(ctx context.Context, text string, events []domain.PayEvent, declEarn, declDed decimal.NullDecimal, current decimal.Decimal) ([]domain.PayEvent, bool) {
	refined, err := r.refiner.Refine(ctx, RefineRequest{
		Text:               text,
		DeclaredEarnings:   declEarn,
		DeclaredDeductions: declDed,
		Events:             append([]domain.PayEvent(nil), events...),
		Mismatch:           current,
	})
	if err != nil {
		r.logger.Warn("falha no refinamento das verbas; mantendo conciliação local", zap.Error(err))
		return nil, false
	}
	if len(refined) == 0 {
		return nil, false
	}
	out, _ := r.classify(refined)
	return out, true
}

// classify aplica o passo 1 numa cópia das verbas e devolve os índices ambíguos.
func (r *Reconciler) classify(events []domain.PayEvent) ([]domain.PayEvent, []int) {
	out := make([]domain.PayEvent, len(events))
	var ambiguous []int
	for i, ev := range events {
		ev.Earning = nonZero(ev.Earning)
		ev.Deduction = nonZero(ev.Deduction)
		single := ev.Earning.Valid != ev.Deduction.Valid

		switch r.classifier.Polarity(ev.Code, ev.Description) {
		case PolarityDeduction:
			if !ev.Deduction.Valid {
				ev.Deduction = ev.Earning
			}
			ev.Earning = decimal.NullDecimal{}
		case PolarityEarning:
			if !ev.Earning.Valid {
				ev.Earning = ev.Deduction
			}
			ev.Deduction = decimal.NullDecimal{}
		default:
			// sem dica e com os dois valores: fica a coluna de proventos
			if ev.Earning.Valid {
				ev.Deduction = decimal.NullDecimal{}
			}
			if single {
				ambiguous = append(ambiguous, i)
			}
		}
		out[i] = ev
	}
	return out, ambiguous
}

func nonZero(v decimal.NullDecimal) decimal.NullDecimal {
	if v.Valid && v.Decimal.IsZero() {
		return decimal.NullDecimal{}
	}
	return v
}

func flip(ev *domain.PayEvent) {
	ev.Earning, ev.Deduction = ev.Deduction, ev.Earning
}

func sums(events []domain.PayEvent) (earnings, deductions decimal.Decimal) {
	for _, ev := range events {
		if ev.Earning.Valid {
			earnings = earnings.Add(ev.Earning.Decimal)
		}
		if ev.Deduction.Valid {
			deductions = deductions.Add(ev.Deduction.Decimal)
		}
	}
	return earnings, deductions
}

// mismatch soma os desvios absolutos; total ausente não contribui.
func mismatch(earnings, deductions decimal.Decimal, declEarn, declDed decimal.NullDecimal) decimal.Decimal {
	total := decimal.Zero
	if declEarn.Valid {
		total = total.Add(earnings.Sub(declEarn.Decimal).Abs())
	}
	if declDed.Valid {
		total = total.Add(deductions.Sub(declDed.Decimal).Abs())
	}
	return total
}
