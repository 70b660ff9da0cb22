package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Timiochukwu/sentinel/internal/consortium"
	"github.com/Timiochukwu/sentinel/internal/decision"
	"github.com/Timiochukwu/sentinel/internal/domain"
	"github.com/Timiochukwu/sentinel/internal/feedback"
	"github.com/Timiochukwu/sentinel/internal/policy"
	"github.com/Timiochukwu/sentinel/internal/rules"
	"github.com/Timiochukwu/sentinel/internal/velocity"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo       domain.Repository
	bus        domain.EventBus
	evaluator  *rules.Evaluator
	custom     *rules.CustomEngine
	policies   *policy.Store
	combiner   *decision.Combiner
	aggregator *velocity.Aggregator
	consortium *consortium.Service
	feedback   *feedback.Service
	version    string
}

// NewHandler creates a new API handler.
func NewHandler(
	repo domain.Repository,
	bus domain.EventBus,
	evaluator *rules.Evaluator,
	custom *rules.CustomEngine,
	policies *policy.Store,
	combiner *decision.Combiner,
	aggregator *velocity.Aggregator,
	cons *consortium.Service,
	fb *feedback.Service,
	version string,
) *Handler {
	return &Handler{
		repo:       repo,
		bus:        bus,
		evaluator:  evaluator,
		custom:     custom,
		policies:   policies,
		combiner:   combiner,
		aggregator: aggregator,
		consortium: cons,
		feedback:   fb,
		version:    version,
	}
}

// CheckRequest is the request body for POST /v1/check.
type CheckRequest struct {
	TransactionID string            `json:"transactionId,omitempty"`
	UserID        string            `json:"userId"`
	Type          string            `json:"type"`
	Vertical      string            `json:"vertical"`
	Amount        float64           `json:"amount"`
	Currency      string            `json:"currency"`
	Timestamp     *time.Time        `json:"timestamp,omitempty"`
	Enrichment    domain.Enrichment `json:"enrichment"`
	Metadata      map[string]any    `json:"metadata,omitempty"`

	// MLProbability is an externally computed fraud probability (0.0-1.0).
	// Blended only when ML is enabled in configuration.
	MLProbability *float64 `json:"mlProbability,omitempty"`
}

// CheckResponse is the response for POST /v1/check.
type CheckResponse struct {
	EvaluationID     string             `json:"evaluationId"`
	TransactionID    string             `json:"transactionId"`
	Score            float64            `json:"riskScore"`
	Level            domain.RiskLevel   `json:"riskLevel"`
	Decision         domain.Decision    `json:"decision"`
	Flags            []domain.FraudFlag `json:"flags,omitempty"`
	ConsortiumAlerts []string           `json:"consortiumAlerts,omitempty"`
	Recommendation   string             `json:"recommendation"`
	Degraded         []string           `json:"degraded,omitempty"`
	ProcessingMs     int64              `json:"processingTimeMs"`
	Version          string             `json:"version"`
}

// Check handles POST /v1/check: the full scoring pipeline.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	now := time.Now().UTC()
	ts := now
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}
	txID := req.TransactionID
	if txID == "" {
		txID = uuid.New().String()
	}

	tx := &domain.Transaction{
		ID:         txID,
		TenantID:   tenantID,
		UserID:     req.UserID,
		Type:       req.Type,
		Vertical:   domain.Vertical(req.Vertical),
		Amount:     req.Amount,
		Currency:   req.Currency,
		Timestamp:  ts,
		CreatedAt:  now,
		Enrichment: req.Enrichment,
		Metadata:   req.Metadata,
	}

	if err := tx.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.policies.IsEnabled(tx.Vertical) {
		err := fmt.Errorf("%w: %q (enabled: %s)", domain.ErrVerticalDisabled, req.Vertical, h.policies.EnabledNames())
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Raw identity attributes stop here; only hashes travel further.
	ids := h.consortium.Hasher().Identifiers(tx)

	if err := h.repo.SaveTransaction(ctx, tenantID, tx, ids); err != nil {
		slog.Error("failed to save transaction",
			"tenant_id", tenantID, "tx_id", tx.ID, "trace_id", GetTraceID(ctx), "error", err)
		// Scoring proceeds; the evaluation write below is the hard gate.
	}

	rc := h.aggregator.Build(ctx, tx, consortium.Hashes(ids))

	pol := h.policies.Get(tx.Vertical)
	if pol != nil {
		rc.AMLThreshold = pol.AMLThreshold
	}

	flags, _ := h.evaluator.Evaluate(ctx, tx, rc)

	res := h.combiner.Combine(flags, req.MLProbability, pol)

	var alerts []string
	if rc.Consortium != nil {
		alerts = rc.Consortium.Alerts
	}

	eval := &domain.Evaluation{
		ID:               uuid.New().String(),
		TenantID:         tenantID,
		TxID:             tx.ID,
		Score:            res.Score,
		Level:            res.Level,
		Decision:         res.Decision,
		Flags:            flags,
		ConsortiumAlerts: alerts,
		Recommendation:   decision.Recommend(res, flags, alerts),
		MLScore:          res.MLScore,
		RuleScore:        res.RuleScore,
		ProcessingMs:     time.Since(start).Milliseconds(),
		Timestamp:        now,
		Degraded:         rc.Degraded,
	}

	// An unrecorded decision cannot be audited, so this write is fatal.
	if err := h.repo.SaveEvaluation(ctx, tenantID, eval); err != nil {
		slog.Error("failed to save evaluation",
			"tenant_id", tenantID, "tx_id", tx.ID, "trace_id", GetTraceID(ctx), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record evaluation")
		return
	}

	h.publishDecision(r, tenantID, eval)

	writeJSON(w, http.StatusOK, CheckResponse{
		EvaluationID:     eval.ID,
		TransactionID:    tx.ID,
		Score:            eval.Score,
		Level:            eval.Level,
		Decision:         eval.Decision,
		Flags:            eval.Flags,
		ConsortiumAlerts: eval.ConsortiumAlerts,
		Recommendation:   eval.Recommendation,
		Degraded:         eval.Degraded,
		ProcessingMs:     eval.ProcessingMs,
		Version:          h.version,
	})
}

func (h *Handler) publishDecision(r *http.Request, tenantID string, eval *domain.Evaluation) {
	if h.bus == nil {
		return
	}
	ctx := r.Context()
	payload, _ := json.Marshal(eval)
	if err := h.bus.Publish(ctx, tenantID, domain.TopicDecision, payload); err != nil {
		slog.Warn("decision publish failed", "tenant_id", tenantID, "error", err)
	}
	if eval.Decision != domain.DecisionApprove || len(eval.ConsortiumAlerts) > 0 {
		if err := h.bus.Publish(ctx, tenantID, domain.TopicAlert, payload); err != nil {
			slog.Warn("alert publish failed", "tenant_id", tenantID, "error", err)
		}
	}
}

// Feedback handles POST /v1/feedback.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var fb domain.Feedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	err := h.feedback.Process(ctx, tenantID, &fb)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "transaction not found")
	default:
		slog.Error("feedback processing failed", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "feedback processing failed")
	}
}

// GetEvaluation handles GET /v1/evaluations/{id}.
func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())
	eval, err := h.repo.GetEvaluation(r.Context(), tenantID, chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "evaluation not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

// GetTransaction handles GET /v1/transactions/{id}.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())
	tx, err := h.repo.GetTransaction(r.Context(), tenantID, chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// ruleInfo is the catalog listing shape.
type ruleInfo struct {
	Name      string            `json:"name"`
	Category  rules.Category    `json:"category"`
	Severity  domain.Severity   `json:"severity"`
	Score     float64           `json:"score"`
	Verticals []domain.Vertical `json:"verticals,omitempty"`
}

// ListRules handles GET /v1/rules. An optional ?vertical= filters the
// catalog to one vertical.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())

	var catalog []rules.Rule
	if v := r.URL.Query().Get("vertical"); v != "" {
		vertical := domain.Vertical(v)
		if !domain.KnownVertical(vertical) {
			writeError(w, http.StatusBadRequest, "unknown vertical "+v+" (valid: "+domain.VerticalNames()+")")
			return
		}
		catalog = h.evaluator.CatalogFor(vertical)
	} else {
		catalog = h.evaluator.CatalogAll()
	}

	infos := make([]ruleInfo, 0, len(catalog))
	for _, rule := range catalog {
		infos = append(infos, ruleInfo{
			Name:      rule.Name,
			Category:  rule.Category,
			Severity:  rule.Severity,
			Score:     rule.Score,
			Verticals: rule.Verticals,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"builtin":     infos,
		"customCount": h.custom.TenantRuleCount(tenantID),
	})
}

// GetRule handles GET /v1/rules/{name}.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, rule := range h.evaluator.CatalogAll() {
		if rule.Name == name {
			writeJSON(w, http.StatusOK, ruleInfo{
				Name:      rule.Name,
				Category:  rule.Category,
				Severity:  rule.Severity,
				Score:     rule.Score,
				Verticals: rule.Verticals,
			})
			return
		}
	}
	writeError(w, http.StatusNotFound, "rule not found")
}

// CreateCustomRule handles POST /v1/rules: validates, persists, and loads a
// tenant CEL rule.
func (h *Handler) CreateCustomRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var rule domain.CustomRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if rule.Name == "" || rule.Expression == "" {
		writeError(w, http.StatusBadRequest, "name and expression are required")
		return
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	rule.TenantID = tenantID
	rule.Enabled = true

	if err := h.custom.Validate(&rule); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.repo.SaveCustomRule(ctx, tenantID, &rule); err != nil {
		slog.Error("failed to save custom rule", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save rule")
		return
	}
	h.reloadTenantRules(ctx, tenantID)

	writeJSON(w, http.StatusCreated, rule)
}

// ReloadCustomRules handles POST /v1/rules/reload.
func (h *Handler) ReloadCustomRules(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())
	if err := h.reloadTenantRules(r.Context(), tenantID); err != nil {
		writeError(w, http.StatusInternalServerError, "reload failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "reloaded",
		"count":  h.custom.TenantRuleCount(tenantID),
	})
}

func (h *Handler) reloadTenantRules(ctx context.Context, tenantID string) error {
	stored, err := h.repo.ListCustomRules(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list custom rules", "tenant_id", tenantID, "error", err)
		return err
	}
	h.custom.LoadTenant(tenantID, stored)
	return nil
}

// ListPolicies handles GET /v1/policies.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.policies.All())
}

// UpdatePolicy handles PUT /v1/policies/{vertical}: persists and hot-swaps
// one vertical's policy.
func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vertical := domain.Vertical(chi.URLParam(r, "vertical"))
	if !domain.KnownVertical(vertical) {
		writeError(w, http.StatusBadRequest, "unknown vertical (valid: "+domain.VerticalNames()+")")
		return
	}

	var p domain.VerticalPolicy
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	p.Vertical = vertical
	if p.Threshold <= 0 || p.Threshold > 100 {
		writeError(w, http.StatusBadRequest, "threshold must be in (0,100]")
		return
	}

	if err := h.repo.SaveVerticalPolicy(ctx, &p); err != nil {
		slog.Error("failed to save policy", "vertical", vertical, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save policy")
		return
	}
	h.policies.Set(&p)

	writeJSON(w, http.StatusOK, &p)
}

// ReloadPolicies handles POST /v1/policies/reload: re-overlays persisted
// policies onto the in-memory store.
func (h *Handler) ReloadPolicies(w http.ResponseWriter, r *http.Request) {
	if err := h.policies.Load(r.Context(), h.repo); err != nil {
		slog.Error("policy reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "reloaded",
		"count":  len(h.policies.All()),
	})
}

// ConsortiumStats handles GET /v1/consortium/stats.
func (h *Handler) ConsortiumStats(w http.ResponseWriter, r *http.Request) {
	if !h.consortium.Enabled() {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	stats, err := h.consortium.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enabled": true, "stats": stats})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready handles GET /ready: checks the hard dependency.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
