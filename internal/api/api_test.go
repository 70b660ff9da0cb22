package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/Timiochukwu/sentinel/internal/bus"
	"github.com/Timiochukwu/sentinel/internal/consortium"
	"github.com/Timiochukwu/sentinel/internal/counter"
	"github.com/Timiochukwu/sentinel/internal/decision"
	"github.com/Timiochukwu/sentinel/internal/domain"
	"github.com/Timiochukwu/sentinel/internal/feedback"
	"github.com/Timiochukwu/sentinel/internal/policy"
	"github.com/Timiochukwu/sentinel/internal/repository"
	"github.com/Timiochukwu/sentinel/internal/rules"
	"github.com/Timiochukwu/sentinel/internal/velocity"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, _ := newTestStack(t)
	return srv
}

// newTestStack wires the full pipeline on sqlite and an in-process bus. The
// bus is returned for tests that assert on published events.
func newTestStack(t *testing.T) (*Server, *bus.ChannelBus) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "sentinel-api-*.db")
	if err != nil {
		t.Fatalf("temp file failed: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{Driver: "sqlite", SQLitePath: tmpPath})
	if err != nil {
		t.Fatalf("repository failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	counters := counter.NewMemoryStore(24 * time.Hour)
	t.Cleanup(func() { counters.Close() })

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	cfg := domain.DefaultConfig()
	cfg.Scoring.MLEnabled = true
	cfg.Scoring.AggregatorBudget = time.Second

	hasher := consortium.NewHasher(cfg.Consortium.HashSalt)
	cons := consortium.NewService(repo, hasher, cfg.Consortium)

	catalog, err := rules.Catalog()
	if err != nil {
		t.Fatalf("catalog failed: %v", err)
	}
	custom, err := rules.NewCustomEngine(nil)
	if err != nil {
		t.Fatalf("custom engine failed: %v", err)
	}
	evaluator := rules.NewEvaluator(catalog, custom, 8, nil)

	policies := policy.NewStore(nil)
	combiner := decision.NewCombiner(cfg.Scoring)
	aggregator := velocity.NewAggregator(counters, cons, cfg.Scoring.AggregatorBudget, nil)
	fb := feedback.NewService(repo, cons, eventBus, nil)

	handler := NewHandler(repo, eventBus, evaluator, custom, policies, combiner, aggregator, cons, fb, "test")
	return NewServer(cfg.Server, handler), eventBus
}

func doJSON(t *testing.T, srv *Server, method, path, tenant string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode failed: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set(TenantIDHeader, tenant)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func checkBody(t *testing.T, rec *httptest.ResponseRecorder) CheckResponse {
	t.Helper()
	var resp CheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v body=%s", err, rec.Body.String())
	}
	return resp
}

func TestCheckValidation(t *testing.T) {
	srv := newTestServer(t)

	t.Run("MissingTenant", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/v1/check", "", map[string]any{})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("MissingFields", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/v1/check", "t-1", map[string]any{
			"userId": "u-1",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("MalformedTenant", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/v1/check", "bad tenant!", map[string]any{
			"userId": "u-1", "type": "purchase", "vertical": "ecommerce",
			"amount": 100, "currency": "NGN",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("UnknownVerticalNamesAlternatives", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/v1/check", "t-1", map[string]any{
			"userId": "u-1", "type": "purchase", "vertical": "aviation",
			"amount": 100, "currency": "NGN",
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if !bytes.Contains(rec.Body.Bytes(), []byte("lending")) {
			t.Errorf("error must name valid verticals: %s", rec.Body.String())
		}
	})
}

func TestCheckNewAccountLargeAmount(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/v1/check", "lender-a", map[string]any{
		"userId": "u-1", "type": "loan_application", "vertical": "lending",
		"amount": 150000, "currency": "NGN",
		"enrichment": map[string]any{"accountAgeDays": 3},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	resp := checkBody(t, rec)
	found := false
	for _, f := range resp.Flags {
		if f.Rule == "new_account_large_amount" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected new_account_large_amount in %+v", resp.Flags)
	}
	if resp.Decision == domain.DecisionApprove {
		t.Errorf("decision = %s, want at least review", resp.Decision)
	}
}

func TestCheckCleanTransactionApproves(t *testing.T) {
	srv := newTestServer(t)

	age := 400
	rec := doJSON(t, srv, http.MethodPost, "/v1/check", "t-1", map[string]any{
		"userId": "u-clean", "type": "purchase", "vertical": "ecommerce",
		"amount": 5000, "currency": "NGN",
		"enrichment": map[string]any{"accountAgeDays": age, "email": "longtime@example.com"},
	})
	resp := checkBody(t, rec)
	if resp.Decision != domain.DecisionApprove {
		t.Errorf("clean transaction: decision = %s flags = %+v", resp.Decision, resp.Flags)
	}
	if resp.EvaluationID == "" || resp.TransactionID == "" {
		t.Error("response must carry evaluation and transaction ids")
	}
}

func TestCheckImpossibleTravel(t *testing.T) {
	srv := newTestServer(t)

	base := time.Now().Add(-time.Hour)
	first := map[string]any{
		"userId": "u-geo", "type": "transfer", "vertical": "fintech",
		"amount": 5000, "currency": "NGN",
		"timestamp":  base.Format(time.RFC3339),
		"enrichment": map[string]any{"latitude": 6.5244, "longitude": 3.3792},
	}
	if rec := doJSON(t, srv, http.MethodPost, "/v1/check", "t-1", first); rec.Code != http.StatusOK {
		t.Fatalf("first check failed: %s", rec.Body.String())
	}

	second := map[string]any{
		"userId": "u-geo", "type": "transfer", "vertical": "fintech",
		"amount": 5000, "currency": "NGN",
		"timestamp":  base.Add(time.Hour).Format(time.RFC3339),
		"enrichment": map[string]any{"latitude": 9.0765, "longitude": 7.3986},
	}
	resp := checkBody(t, doJSON(t, srv, http.MethodPost, "/v1/check", "t-1", second))

	var travel *domain.FraudFlag
	for i := range resp.Flags {
		if resp.Flags[i].Rule == "impossible_travel" {
			travel = &resp.Flags[i]
		}
	}
	if travel == nil {
		t.Fatalf("expected impossible_travel, got %+v", resp.Flags)
	}
	if travel.Severity != domain.SeverityCritical {
		t.Errorf("severity = %s, want critical", travel.Severity)
	}
	if resp.Decision != domain.DecisionDecline {
		t.Errorf("decision = %s, want decline", resp.Decision)
	}
}

func TestFeedbackFeedsConsortium(t *testing.T) {
	srv := newTestServer(t)

	// Four different lenders confirm fraud on the same identity.
	for i := 1; i <= 4; i++ {
		tenant := fmt.Sprintf("lender-%d", i)
		check := doJSON(t, srv, http.MethodPost, "/v1/check", tenant, map[string]any{
			"userId": "u-fraud", "type": "loan_application", "vertical": "lending",
			"amount": 50000, "currency": "NGN",
			"enrichment": map[string]any{"email": "fraudster@example.com", "deviceFingerprint": "dev-shared"},
		})
		if check.Code != http.StatusOK {
			t.Fatalf("check %d failed: %s", i, check.Body.String())
		}
		txID := checkBody(t, check).TransactionID

		fb := doJSON(t, srv, http.MethodPost, "/v1/feedback", tenant, map[string]any{
			"transactionId": txID, "actualOutcome": "fraud", "fraudType": "loan_stacking",
		})
		if fb.Code != http.StatusOK {
			t.Fatalf("feedback %d failed: %s", i, fb.Body.String())
		}
	}

	// A fifth lender now sees the network history and declines.
	rec := doJSON(t, srv, http.MethodPost, "/v1/check", "lender-5", map[string]any{
		"userId": "u-new", "type": "loan_application", "vertical": "lending",
		"amount": 50000, "currency": "NGN",
		"enrichment": map[string]any{"email": "fraudster@example.com", "deviceFingerprint": "dev-shared"},
	})
	resp := checkBody(t, rec)

	hasAlert := func(name string) bool {
		for _, a := range resp.ConsortiumAlerts {
			if a == name {
				return true
			}
		}
		return false
	}
	if !hasAlert("known_fraudster") {
		t.Errorf("expected known_fraudster alert, got %v", resp.ConsortiumAlerts)
	}
	if !hasAlert("loan_stacking_pattern") {
		t.Errorf("expected loan_stacking_pattern alert, got %v", resp.ConsortiumAlerts)
	}
	if resp.Decision != domain.DecisionDecline {
		t.Errorf("decision = %s, want decline (score %.0f)", resp.Decision, resp.Score)
	}
}

func TestFeedbackErrors(t *testing.T) {
	srv := newTestServer(t)

	t.Run("UnknownTransaction", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/v1/feedback", "t-1", map[string]any{
			"transactionId": "nope", "actualOutcome": "fraud",
		})
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("BadOutcome", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/v1/feedback", "t-1", map[string]any{
			"transactionId": "tx", "actualOutcome": "maybe",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestMLBlend(t *testing.T) {
	srv := newTestServer(t)

	// Clean transaction, but the external model is confident it is fraud.
	age := 400
	rec := doJSON(t, srv, http.MethodPost, "/v1/check", "t-1", map[string]any{
		"userId": "u-ml", "type": "purchase", "vertical": "ecommerce",
		"amount": 5000, "currency": "NGN",
		"enrichment":    map[string]any{"accountAgeDays": age},
		"mlProbability": 0.95,
	})
	resp := checkBody(t, rec)

	// 0.7*95 + 0.3*0 = 66.5, within the review band for ecommerce (70).
	if resp.Score < 66 || resp.Score > 67 {
		t.Errorf("blended score = %v, want ~66.5", resp.Score)
	}
	if resp.Decision != domain.DecisionReview {
		t.Errorf("decision = %s, want review", resp.Decision)
	}
}

func TestCustomRuleLifecycle(t *testing.T) {
	srv := newTestServer(t)

	create := doJSON(t, srv, http.MethodPost, "/v1/rules", "t-1", map[string]any{
		"name":       "house_limit",
		"expression": "amount > 900000.0",
		"severity":   "high",
		"score":      80,
	})
	if create.Code != http.StatusCreated {
		t.Fatalf("create failed: %s", create.Body.String())
	}

	rec := doJSON(t, srv, http.MethodPost, "/v1/check", "t-1", map[string]any{
		"userId": "u-1", "type": "transfer", "vertical": "fintech",
		"amount": 950000, "currency": "NGN",
	})
	resp := checkBody(t, rec)
	found := false
	for _, f := range resp.Flags {
		if f.Rule == "house_limit" {
			found = true
		}
	}
	if !found {
		t.Errorf("custom rule did not fire: %+v", resp.Flags)
	}

	t.Run("RejectsBadExpression", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/v1/rules", "t-1", map[string]any{
			"name": "broken", "expression": "amount >",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestPolicyUpdate(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPut, "/v1/policies/betting", "t-1", map[string]any{
		"threshold":   50,
		"ruleWeights": map[string]float64{"bonus_abuse_withdrawal": 2.0},
		"enabled":     false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update failed: %s", rec.Body.String())
	}

	// The disabled vertical must now reject checks, naming the verticals
	// that still accept traffic.
	check := doJSON(t, srv, http.MethodPost, "/v1/check", "t-1", map[string]any{
		"userId": "u-1", "type": "bet", "vertical": "betting",
		"amount": 100, "currency": "NGN",
	})
	if check.Code != http.StatusBadRequest {
		t.Errorf("disabled vertical status = %d, want 400", check.Code)
	}
	if !bytes.Contains(check.Body.Bytes(), []byte("disabled")) {
		t.Errorf("error must say the vertical is disabled: %s", check.Body.String())
	}
	if !bytes.Contains(check.Body.Bytes(), []byte("lending")) {
		t.Errorf("error must name the enabled alternatives: %s", check.Body.String())
	}
}

func TestEvaluationRetrievalAndIsolation(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/v1/check", "t-1", map[string]any{
		"userId": "u-1", "type": "purchase", "vertical": "ecommerce",
		"amount": 5000, "currency": "NGN",
	})
	resp := checkBody(t, rec)

	get := doJSON(t, srv, http.MethodGet, "/v1/evaluations/"+resp.EvaluationID, "t-1", nil)
	if get.Code != http.StatusOK {
		t.Errorf("get evaluation = %d: %s", get.Code, get.Body.String())
	}

	other := doJSON(t, srv, http.MethodGet, "/v1/evaluations/"+resp.EvaluationID, "t-2", nil)
	if other.Code != http.StatusNotFound {
		t.Errorf("cross-tenant read = %d, want 404", other.Code)
	}
}

func TestAlertTopicOnEscalation(t *testing.T) {
	srv, eventBus := newTestStack(t)

	alerts := make(chan *domain.Message, 10)
	sub, err := eventBus.Subscribe(context.Background(), "t-alert", domain.TopicAlert, func(ctx context.Context, msg *domain.Message) error {
		alerts <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	waitAlert := func(t *testing.T) *domain.Message {
		t.Helper()
		select {
		case m := <-alerts:
			return m
		case <-time.After(3 * time.Second):
			t.Fatal("no alert published")
			return nil
		}
	}

	t.Run("DeclinePublishes", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/v1/check", "t-alert", map[string]any{
			"userId": "u-decline", "type": "loan_application", "vertical": "lending",
			"amount": 600000, "currency": "NGN",
			"enrichment": map[string]any{"accountAgeDays": 0},
		})
		resp := checkBody(t, rec)
		if resp.Decision != domain.DecisionDecline {
			t.Fatalf("decision = %s, want decline (score %.0f)", resp.Decision, resp.Score)
		}

		msg := waitAlert(t)
		var eval domain.Evaluation
		if err := json.Unmarshal(msg.Payload, &eval); err != nil {
			t.Fatalf("alert payload decode failed: %v", err)
		}
		if eval.Decision != domain.DecisionDecline {
			t.Errorf("alert decision = %s, want decline", eval.Decision)
		}
	})

	t.Run("ReviewPublishes", func(t *testing.T) {
		age := 400
		rec := doJSON(t, srv, http.MethodPost, "/v1/check", "t-alert", map[string]any{
			"userId": "u-review", "type": "purchase", "vertical": "ecommerce",
			"amount": 5000, "currency": "NGN",
			"enrichment":    map[string]any{"accountAgeDays": age, "email": "steady@example.com"},
			"mlProbability": 0.95,
		})
		resp := checkBody(t, rec)
		if resp.Decision != domain.DecisionReview {
			t.Fatalf("decision = %s, want review (score %.0f)", resp.Decision, resp.Score)
		}

		msg := waitAlert(t)
		var eval domain.Evaluation
		if err := json.Unmarshal(msg.Payload, &eval); err != nil {
			t.Fatalf("alert payload decode failed: %v", err)
		}
		if eval.Decision != domain.DecisionReview {
			t.Errorf("alert decision = %s, want review", eval.Decision)
		}
	})
}

func TestHealthAndRules(t *testing.T) {
	srv := newTestServer(t)

	if rec := doJSON(t, srv, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("health = %d", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodGet, "/ready", "", nil); rec.Code != http.StatusOK {
		t.Errorf("ready = %d", rec.Code)
	}

	rec := doJSON(t, srv, http.MethodGet, "/v1/rules?vertical=crypto", "t-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("rules = %d", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("loan_stacking_consortium")) {
		t.Error("crypto listing must not contain lending-only rules")
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("mixer_exposure_high")) {
		t.Error("crypto listing missing crypto rules")
	}
}
