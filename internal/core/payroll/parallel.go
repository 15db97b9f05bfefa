package payroll

import (
	"context"

	"complemento-service/internal/domain"

	"golang.org/x/sync/errgroup"
)

// parseAll roda parse para cada índice com até p.workers goroutines e devolve os documentos
// aceitos na ordem original.
func (p *Parser) parseAll(ctx context.Context, n int, parse func(context.Context, int) (domain.EmployeeDocument, bool)) []domain.EmployeeDocument {
	results := make([]*domain.EmployeeDocument, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.workers, 1))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if doc, ok := parse(gctx, i); ok {
				results[i] = &doc
			}
			return nil
		})
	}
	_ = g.Wait()

	docs := make([]domain.EmployeeDocument, 0, n)
	for _, doc := range results {
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	return docs
}
