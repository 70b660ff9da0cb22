// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

var (
	ErrNotFound     = domain.ErrNotFound
	ErrInvalidInput = domain.ErrInvalidInput
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{db: db, driver: cfg.Driver}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveTransaction appends a transaction with its identifier hashes. Raw
// identity attributes are redacted from the stored enrichment; the hash
// columns are the only durable trace of them.
func (r *SQLRepository) SaveTransaction(ctx context.Context, tenantID string, tx *domain.Transaction, ids []domain.HashedIdentifier) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	redacted := tx.Enrichment
	redacted.Email = ""
	redacted.Phone = ""
	redacted.IDNumber = ""

	enrichment, _ := json.Marshal(redacted)
	metadata, _ := json.Marshal(tx.Metadata)

	hashes := map[domain.IdentifierType]string{}
	for _, id := range ids {
		hashes[id.Type] = id.Hash
	}

	query := `
		INSERT INTO transactions (
			id, tenant_id, user_id, type, vertical, amount, currency,
			timestamp, created_at, enrichment, metadata,
			device_hash, email_hash, phone_hash, id_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tx.ID, tenantID, tx.UserID, tx.Type, string(tx.Vertical),
		tx.Amount, tx.Currency, tx.Timestamp, tx.CreatedAt,
		string(enrichment), string(metadata),
		nullable(hashes[domain.IdentifierDevice]),
		nullable(hashes[domain.IdentifierEmail]),
		nullable(hashes[domain.IdentifierPhone]),
		nullable(hashes[domain.IdentifierID]),
	)
	return err
}

// GetTransaction retrieves a transaction by ID with tenant isolation.
func (r *SQLRepository) GetTransaction(ctx context.Context, tenantID string, txID string) (*domain.Transaction, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, user_id, type, vertical, amount, currency,
		       timestamp, created_at, enrichment, metadata,
		       device_hash, email_hash, phone_hash, id_hash,
		       outcome, fraud_type, outcome_at
		FROM transactions
		WHERE tenant_id = ? AND id = ?
	`

	var tx domain.Transaction
	var vertical, enrichment string
	var metadata sql.NullString
	var deviceHash, emailHash, phoneHash, idHash sql.NullString
	var outcome, fraudType sql.NullString
	var outcomeAt sql.NullTime

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, txID).Scan(
		&tx.ID, &tx.TenantID, &tx.UserID, &tx.Type, &vertical,
		&tx.Amount, &tx.Currency, &tx.Timestamp, &tx.CreatedAt,
		&enrichment, &metadata,
		&deviceHash, &emailHash, &phoneHash, &idHash,
		&outcome, &fraudType, &outcomeAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	tx.Vertical = domain.Vertical(vertical)
	if enrichment != "" {
		json.Unmarshal([]byte(enrichment), &tx.Enrichment)
	}
	if metadata.Valid && metadata.String != "" {
		json.Unmarshal([]byte(metadata.String), &tx.Metadata)
	}
	addHash := func(t domain.IdentifierType, v sql.NullString) {
		if v.Valid && v.String != "" {
			tx.IdentifierHashes = append(tx.IdentifierHashes, domain.HashedIdentifier{Type: t, Hash: v.String})
		}
	}
	addHash(domain.IdentifierDevice, deviceHash)
	addHash(domain.IdentifierEmail, emailHash)
	addHash(domain.IdentifierPhone, phoneHash)
	addHash(domain.IdentifierID, idHash)
	tx.Outcome = outcome.String
	tx.FraudType = fraudType.String
	if outcomeAt.Valid {
		t := outcomeAt.Time
		tx.OutcomeAt = &t
	}
	return &tx, nil
}

// AttachOutcome mutates a transaction to record its confirmed outcome. The
// transaction row is otherwise append-only.
func (r *SQLRepository) AttachOutcome(ctx context.Context, tenantID string, fb *domain.Feedback) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE transactions
		SET outcome = ?, fraud_type = ?, amount_saved = ?, outcome_at = ?
		WHERE tenant_id = ? AND id = ?
	`
	result, err := r.db.ExecContext(ctx, r.rebind(query),
		fb.ActualOutcome, nullable(fb.FraudType), fb.AmountSaved, time.Now().UTC(),
		tenantID, fb.TransactionID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveEvaluation stores a decision record. This is the audit log write: the
// caller treats failure here as fatal for the request.
func (r *SQLRepository) SaveEvaluation(ctx context.Context, tenantID string, eval *domain.Evaluation) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	flags, _ := json.Marshal(eval.Flags)
	alerts, _ := json.Marshal(eval.ConsortiumAlerts)
	degraded, _ := json.Marshal(eval.Degraded)

	var mlScore sql.NullFloat64
	if eval.MLScore != nil {
		mlScore = sql.NullFloat64{Float64: *eval.MLScore, Valid: true}
	}

	query := `
		INSERT INTO evaluations (
			id, tenant_id, tx_id, score, level, decision, flags,
			consortium_alerts, recommendation, ml_score, rule_score,
			processing_ms, degraded, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		eval.ID, tenantID, eval.TxID, eval.Score, string(eval.Level),
		string(eval.Decision), string(flags), string(alerts),
		eval.Recommendation, mlScore, eval.RuleScore,
		eval.ProcessingMs, string(degraded), eval.Timestamp,
	)
	return err
}

// GetEvaluation retrieves an evaluation by ID with tenant isolation.
func (r *SQLRepository) GetEvaluation(ctx context.Context, tenantID string, evalID string) (*domain.Evaluation, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, tx_id, score, level, decision, flags,
		       consortium_alerts, recommendation, ml_score, rule_score,
		       processing_ms, degraded, timestamp
		FROM evaluations
		WHERE tenant_id = ? AND id = ?
	`

	var eval domain.Evaluation
	var level, decision, flags string
	var alerts, degraded, recommendation sql.NullString
	var mlScore sql.NullFloat64

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, evalID).Scan(
		&eval.ID, &eval.TenantID, &eval.TxID, &eval.Score, &level,
		&decision, &flags, &alerts, &recommendation, &mlScore,
		&eval.RuleScore, &eval.ProcessingMs, &degraded, &eval.Timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	eval.Level = domain.RiskLevel(level)
	eval.Decision = domain.Decision(decision)
	eval.Recommendation = recommendation.String
	json.Unmarshal([]byte(flags), &eval.Flags)
	if alerts.Valid {
		json.Unmarshal([]byte(alerts.String), &eval.ConsortiumAlerts)
	}
	if degraded.Valid {
		json.Unmarshal([]byte(degraded.String), &eval.Degraded)
	}
	if mlScore.Valid {
		eval.MLScore = &mlScore.Float64
	}
	return &eval, nil
}

// UpsertConsortiumRecord records one fraud confirmation against a hash. The
// counter row update is a single atomic statement, so concurrent reports on
// the same hash never lose increments; the set side tables use insert-or-
// ignore semantics.
func (r *SQLRepository) UpsertConsortiumRecord(ctx context.Context, id domain.HashedIdentifier, vertical domain.Vertical, tenantID, fraudType string, amount float64, at time.Time) error {
	if id.Hash == "" {
		return fmt.Errorf("%w: hash is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO consortium_records (hash, id_type, occurrences, total_amount, risk_level, first_seen, last_seen)
		VALUES (?, ?, 1, ?, 'medium', ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			occurrences = consortium_records.occurrences + 1,
			total_amount = consortium_records.total_amount + excluded.total_amount,
			risk_level = CASE
				WHEN consortium_records.occurrences + 1 >= 5 THEN 'critical'
				WHEN consortium_records.occurrences + 1 >= 3 THEN 'high'
				ELSE 'medium'
			END,
			last_seen = excluded.last_seen
	`
	if _, err := r.db.ExecContext(ctx, r.rebind(query),
		id.Hash, string(id.Type), amount, at, at,
	); err != nil {
		return err
	}

	sets := []struct {
		query string
		value string
	}{
		{`INSERT INTO consortium_tenants (hash, tenant_id) VALUES (?, ?) ON CONFLICT DO NOTHING`, tenantID},
		{`INSERT INTO consortium_verticals (hash, vertical) VALUES (?, ?) ON CONFLICT DO NOTHING`, string(vertical)},
		{`INSERT INTO consortium_fraud_types (hash, fraud_type) VALUES (?, ?) ON CONFLICT DO NOTHING`, fraudType},
	}
	for _, set := range sets {
		if set.value == "" {
			continue
		}
		if _, err := r.db.ExecContext(ctx, r.rebind(set.query), id.Hash, set.value); err != nil {
			return err
		}
	}
	return nil
}

// GetConsortiumRecords returns the records matching any of the given hashes,
// with their tenant/vertical/fraud-type sets populated.
func (r *SQLRepository) GetConsortiumRecords(ctx context.Context, hashes []string) ([]*domain.ConsortiumRecord, error) {
	if len(hashes) == 0 {
		return nil, nil
	}

	placeholders, args := r.inClause(hashes)

	query := fmt.Sprintf(`
		SELECT hash, id_type, occurrences, total_amount, risk_level, first_seen, last_seen
		FROM consortium_records
		WHERE hash IN (%s)
	`, placeholders)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byHash := map[string]*domain.ConsortiumRecord{}
	var records []*domain.ConsortiumRecord
	for rows.Next() {
		var rec domain.ConsortiumRecord
		var idType, riskLevel string
		if err := rows.Scan(&rec.Hash, &idType, &rec.Occurrences, &rec.TotalAmount, &riskLevel, &rec.FirstSeen, &rec.LastSeen); err != nil {
			return nil, err
		}
		rec.Type = domain.IdentifierType(idType)
		rec.RiskLevel = domain.RiskLevel(riskLevel)
		byHash[rec.Hash] = &rec
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	if err := r.loadConsortiumSets(ctx, byHash); err != nil {
		return nil, err
	}
	return records, nil
}

// loadConsortiumSets fills the set-valued fields for the given records.
func (r *SQLRepository) loadConsortiumSets(ctx context.Context, byHash map[string]*domain.ConsortiumRecord) error {
	hashes := make([]string, 0, len(byHash))
	for h := range byHash {
		hashes = append(hashes, h)
	}
	placeholders, args := r.inClause(hashes)

	type setQuery struct {
		query  string
		assign func(rec *domain.ConsortiumRecord, value string)
	}
	queries := []setQuery{
		{
			fmt.Sprintf(`SELECT hash, tenant_id FROM consortium_tenants WHERE hash IN (%s)`, placeholders),
			func(rec *domain.ConsortiumRecord, v string) { rec.Tenants = append(rec.Tenants, v) },
		},
		{
			fmt.Sprintf(`SELECT hash, vertical FROM consortium_verticals WHERE hash IN (%s)`, placeholders),
			func(rec *domain.ConsortiumRecord, v string) {
				rec.Verticals = append(rec.Verticals, domain.Vertical(v))
			},
		},
		{
			fmt.Sprintf(`SELECT hash, fraud_type FROM consortium_fraud_types WHERE hash IN (%s)`, placeholders),
			func(rec *domain.ConsortiumRecord, v string) { rec.FraudTypes = append(rec.FraudTypes, v) },
		},
	}

	for _, q := range queries {
		rows, err := r.db.QueryContext(ctx, r.rebind(q.query), args...)
		if err != nil {
			return err
		}
		for rows.Next() {
			var hash, value string
			if err := rows.Scan(&hash, &value); err != nil {
				rows.Close()
				return err
			}
			if rec, ok := byHash[hash]; ok {
				q.assign(rec, value)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
	}
	return nil
}

// GetConsortiumStats returns pool-wide aggregates.
func (r *SQLRepository) GetConsortiumStats(ctx context.Context) (*domain.ConsortiumStats, error) {
	stats := &domain.ConsortiumStats{}

	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(total_amount), 0),
		       COALESCE(SUM(CASE WHEN risk_level = 'critical' THEN 1 ELSE 0 END), 0)
		FROM consortium_records
	`
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.Records, &stats.TotalExposure, &stats.CriticalHashes); err != nil {
		return nil, err
	}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT tenant_id) FROM consortium_tenants`).Scan(&stats.Tenants); err != nil {
		return nil, err
	}
	return stats, nil
}

// ScanStacking returns the distinct other tenants whose recent transactions
// carry any of the given identifier hashes.
func (r *SQLRepository) ScanStacking(ctx context.Context, excludeTenant string, hashes []string, since time.Time) ([]string, error) {
	if len(hashes) == 0 {
		return nil, nil
	}

	placeholders, args := r.inClause(hashes)
	full := make([]any, 0, len(args)*4+2)
	full = append(full, excludeTenant, since)
	for i := 0; i < 4; i++ {
		full = append(full, args...)
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT tenant_id FROM transactions
		WHERE tenant_id <> ? AND timestamp >= ?
		  AND (device_hash IN (%[1]s) OR email_hash IN (%[1]s)
		       OR phone_hash IN (%[1]s) OR id_hash IN (%[1]s))
		ORDER BY tenant_id
	`, placeholders)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), full...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// SaveVerticalPolicy upserts a vertical policy.
func (r *SQLRepository) SaveVerticalPolicy(ctx context.Context, p *domain.VerticalPolicy) error {
	weights, _ := json.Marshal(p.RuleWeights)
	enabled := 0
	if p.Enabled {
		enabled = 1
	}

	query := `
		INSERT INTO vertical_policies (vertical, threshold, aml_threshold, rule_weights, enabled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(vertical) DO UPDATE SET
			threshold = excluded.threshold,
			aml_threshold = excluded.aml_threshold,
			rule_weights = excluded.rule_weights,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		string(p.Vertical), p.Threshold, p.AMLThreshold, string(weights), enabled, time.Now().UTC(),
	)
	return err
}

// ListVerticalPolicies returns all stored vertical policies.
func (r *SQLRepository) ListVerticalPolicies(ctx context.Context) ([]*domain.VerticalPolicy, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT vertical, threshold, aml_threshold, rule_weights, enabled
		FROM vertical_policies ORDER BY vertical
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []*domain.VerticalPolicy
	for rows.Next() {
		var p domain.VerticalPolicy
		var vertical, weights string
		var enabled int
		if err := rows.Scan(&vertical, &p.Threshold, &p.AMLThreshold, &weights, &enabled); err != nil {
			return nil, err
		}
		p.Vertical = domain.Vertical(vertical)
		p.Enabled = enabled == 1
		json.Unmarshal([]byte(weights), &p.RuleWeights)
		policies = append(policies, &p)
	}
	return policies, rows.Err()
}

// SaveCustomRule upserts a tenant's custom rule.
func (r *SQLRepository) SaveCustomRule(ctx context.Context, tenantID string, rule *domain.CustomRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	verticals, _ := json.Marshal(rule.Verticals)
	enabled := 0
	if rule.Enabled {
		enabled = 1
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO custom_rules (id, tenant_id, name, description, expression, severity, score, verticals, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			severity = excluded.severity,
			score = excluded.score,
			verticals = excluded.verticals,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description, rule.Expression,
		string(rule.Severity), rule.Score, string(verticals), enabled, now, now,
	)
	return err
}

// ListCustomRules returns a tenant's enabled custom rules.
func (r *SQLRepository) ListCustomRules(ctx context.Context, tenantID string) ([]*domain.CustomRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT id, tenant_id, name, description, expression, severity, score, verticals, enabled
		FROM custom_rules
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY name
	`), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.CustomRule
	for rows.Next() {
		var rule domain.CustomRule
		var severity string
		var verticals sql.NullString
		var description sql.NullString
		var enabled int
		if err := rows.Scan(&rule.ID, &rule.TenantID, &rule.Name, &description, &rule.Expression, &severity, &rule.Score, &verticals, &enabled); err != nil {
			return nil, err
		}
		rule.Description = description.String
		rule.Severity = domain.Severity(severity)
		rule.Enabled = enabled == 1
		if verticals.Valid && verticals.String != "" {
			json.Unmarshal([]byte(verticals.String), &rule.Verticals)
		}
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// inClause builds a ? placeholder list and argument slice for an IN query.
// The assembled query must still go through rebind so the placeholders are
// numbered in one pass.
func (r *SQLRepository) inClause(values []string) (string, []any) {
	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		marks[i] = "?"
		args[i] = v
	}
	return strings.Join(marks, ", "), args
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

// nullable maps "" to NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
