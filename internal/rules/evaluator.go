package rules

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// Evaluator runs the catalog against a transaction. Rules are pure, so many
// evaluations run concurrently without locks; the semaphore only bounds
// goroutine fan-out per request.
type Evaluator struct {
	catalog    []Rule
	custom     *CustomEngine
	maxWorkers int
	logger     *slog.Logger
}

// NewEvaluator creates an evaluator over the given catalog. The custom
// engine is optional.
func NewEvaluator(catalog []Rule, custom *CustomEngine, maxWorkers int, logger *slog.Logger) *Evaluator {
	if maxWorkers <= 0 {
		maxWorkers = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		catalog:    catalog,
		custom:     custom,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// CatalogSize returns the number of built-in rules.
func (e *Evaluator) CatalogSize() int {
	return len(e.catalog)
}

// CatalogAll returns the full built-in catalog.
func (e *Evaluator) CatalogAll() []Rule {
	return e.catalog
}

// CatalogFor returns the built-in rules applicable to a vertical, for the
// admin listing.
func (e *Evaluator) CatalogFor(v domain.Vertical) []Rule {
	var out []Rule
	for _, r := range e.catalog {
		if r.AppliesTo(v) {
			out = append(out, r)
		}
	}
	return out
}

// Evaluate runs every applicable rule and returns the triggered flags with
// the sum of their raw scores. A panicking rule is logged by name and
// skipped; the rest of the catalog still runs.
func (e *Evaluator) Evaluate(ctx context.Context, tx *domain.Transaction, rc *domain.RiskContext) ([]domain.FraudFlag, float64) {
	applicable := e.CatalogFor(tx.Vertical)

	results := make([]*domain.FraudFlag, len(applicable))
	sem := make(chan struct{}, e.maxWorkers)
	var wg sync.WaitGroup

	for i, rule := range applicable {
		wg.Add(1)
		go func(idx int, r Rule) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			defer func() {
				if rec := recover(); rec != nil {
					e.logger.Error("rule panicked",
						"rule", r.Name,
						"tenant_id", tx.TenantID,
						"tx_id", tx.ID,
						"panic", rec,
					)
				}
			}()

			if hit := r.Check(tx, rc); hit != nil {
				flag := r.Flag(hit)
				results[idx] = &flag
			}
		}(i, rule)
	}
	wg.Wait()

	var flags []domain.FraudFlag
	var rawScore float64
	for _, f := range results {
		if f != nil {
			flags = append(flags, *f)
			rawScore += f.Score
		}
	}

	if e.custom != nil {
		customFlags := e.custom.Evaluate(ctx, tx, rc)
		for _, f := range customFlags {
			flags = append(flags, f)
			rawScore += f.Score
		}
	}

	return flags, rawScore
}
