package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// CustomEngine compiles and evaluates tenant-authored CEL rules. Expressions
// see the transaction and the aggregated context as maps and must return a
// boolean.
type CustomEngine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled map[string][]compiledCustomRule // keyed by tenant
	logger   *slog.Logger
}

type compiledCustomRule struct {
	rule    *domain.CustomRule
	program cel.Program
}

// NewCustomEngine creates the CEL environment for tenant rules.
func NewCustomEngine(logger *slog.Logger) (*CustomEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	env, err := cel.NewEnv(
		cel.Variable("tx", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("context", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("currency", cel.StringType),
		cel.Variable("tx_type", cel.StringType),
		cel.Variable("vertical", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &CustomEngine{
		env:      env,
		compiled: make(map[string][]compiledCustomRule),
		logger:   logger,
	}, nil
}

// Validate compiles an expression without loading it.
func (e *CustomEngine) Validate(rule *domain.CustomRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule is required", domain.ErrInvalidInput)
	}
	_, err := e.compile(rule)
	return err
}

// LoadTenant replaces a tenant's compiled rule set. Rules that fail to
// compile are skipped with a log line so one bad rule cannot block the rest.
func (e *CustomEngine) LoadTenant(tenantID string, rules []*domain.CustomRule) {
	var compiled []compiledCustomRule
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		c, err := e.compile(rule)
		if err != nil {
			e.logger.Warn("skipping uncompilable custom rule",
				"tenant_id", tenantID, "rule", rule.Name, "error", err)
			continue
		}
		compiled = append(compiled, c)
	}

	e.mu.Lock()
	e.compiled[tenantID] = compiled
	e.mu.Unlock()
}

// TenantRuleCount returns how many compiled rules a tenant has loaded.
func (e *CustomEngine) TenantRuleCount(tenantID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled[tenantID])
}

// Evaluate runs the tenant's compiled rules. An expression error counts as
// not triggered.
func (e *CustomEngine) Evaluate(ctx context.Context, tx *domain.Transaction, rc *domain.RiskContext) []domain.FraudFlag {
	e.mu.RLock()
	compiled := e.compiled[tx.TenantID]
	e.mu.RUnlock()

	if len(compiled) == 0 {
		return nil
	}

	activation := activationFor(tx, rc)

	var flags []domain.FraudFlag
	for _, c := range compiled {
		if !c.rule.AppliesTo(tx.Vertical) {
			continue
		}
		out, _, err := c.program.Eval(activation)
		if err != nil {
			e.logger.Warn("custom rule evaluation failed",
				"tenant_id", tx.TenantID, "rule", c.rule.Name, "error", err)
			continue
		}
		if !truthy(out) {
			continue
		}
		flags = append(flags, domain.FraudFlag{
			Rule:     c.rule.Name,
			Severity: c.rule.Severity,
			Message:  "tenant rule matched",
			Score:    c.rule.Score,
			Metadata: map[string]any{"custom": true},
		})
	}
	return flags
}

func activationFor(tx *domain.Transaction, rc *domain.RiskContext) map[string]any {
	txMap := map[string]any{
		"id":       tx.ID,
		"user_id":  tx.UserID,
		"type":     tx.Type,
		"vertical": string(tx.Vertical),
		"amount":   tx.Amount,
		"currency": tx.Currency,
	}
	ctxMap := map[string]any{
		"count_1m":          rc.Count1m,
		"count_10m":         rc.Count10m,
		"count_1h":          rc.Count1h,
		"count_24h":         rc.Count24h,
		"device_user_count": rc.DeviceUserCount,
		"vpn_suspected":     rc.VPNSuspected,
		"consortium_match":  rc.Consortium != nil && rc.Consortium.Matched,
	}
	return map[string]any{
		"tx":       txMap,
		"context":  ctxMap,
		"amount":   tx.Amount,
		"currency": tx.Currency,
		"tx_type":  tx.Type,
		"vertical": string(tx.Vertical),
	}
}

func truthy(val ref.Val) bool {
	b, ok := val.(types.Bool)
	return ok && bool(b)
}

func (e *CustomEngine) compile(rule *domain.CustomRule) (compiledCustomRule, error) {
	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return compiledCustomRule{}, fmt.Errorf("failed to compile rule %s: %w", rule.Name, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return compiledCustomRule{}, fmt.Errorf("rule %s: expression must return bool, got %s", rule.Name, ast.OutputType())
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return compiledCustomRule{}, fmt.Errorf("failed to create program for rule %s: %w", rule.Name, err)
	}
	return compiledCustomRule{rule: rule, program: program}, nil
}
