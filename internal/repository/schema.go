package repository

// Schema definitions for the Sentinel database.
// Compatible with both SQLite and PostgreSQL.

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    type TEXT NOT NULL,
    vertical TEXT NOT NULL,
    amount REAL NOT NULL,
    currency TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    enrichment TEXT,
    metadata TEXT,
    device_hash TEXT,
    email_hash TEXT,
    phone_hash TEXT,
    id_hash TEXT,
    outcome TEXT,
    fraud_type TEXT,
    amount_saved REAL,
    outcome_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_transactions_tenant ON transactions(tenant_id);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(tenant_id, user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp);
CREATE INDEX IF NOT EXISTS idx_transactions_device_hash ON transactions(device_hash);
CREATE INDEX IF NOT EXISTS idx_transactions_email_hash ON transactions(email_hash);
CREATE INDEX IF NOT EXISTS idx_transactions_phone_hash ON transactions(phone_hash);
CREATE INDEX IF NOT EXISTS idx_transactions_id_hash ON transactions(id_hash);
`

const schemaEvaluations = `
CREATE TABLE IF NOT EXISTS evaluations (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    tx_id TEXT NOT NULL,
    score REAL NOT NULL,
    level TEXT NOT NULL,
    decision TEXT NOT NULL,
    flags TEXT NOT NULL,
    consortium_alerts TEXT,
    recommendation TEXT,
    ml_score REAL,
    rule_score REAL NOT NULL,
    processing_ms INTEGER NOT NULL,
    degraded TEXT,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evaluations_tenant ON evaluations(tenant_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_tx ON evaluations(tenant_id, tx_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_decision ON evaluations(tenant_id, decision);
`

// The consortium tables are deliberately unscoped by tenant: they hold only
// one-way identifier hashes and aggregate counters. The set-valued fields
// (tenants, verticals, fraud types) live in side tables so every write stays
// a single atomic statement on both drivers.
const schemaConsortium = `
CREATE TABLE IF NOT EXISTS consortium_records (
    hash TEXT PRIMARY KEY,
    id_type TEXT NOT NULL,
    occurrences INTEGER NOT NULL DEFAULT 0,
    total_amount REAL NOT NULL DEFAULT 0,
    risk_level TEXT NOT NULL DEFAULT 'none',
    first_seen TIMESTAMP NOT NULL,
    last_seen TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS consortium_tenants (
    hash TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    PRIMARY KEY (hash, tenant_id)
);

CREATE TABLE IF NOT EXISTS consortium_verticals (
    hash TEXT NOT NULL,
    vertical TEXT NOT NULL,
    PRIMARY KEY (hash, vertical)
);

CREATE TABLE IF NOT EXISTS consortium_fraud_types (
    hash TEXT NOT NULL,
    fraud_type TEXT NOT NULL,
    PRIMARY KEY (hash, fraud_type)
);

CREATE INDEX IF NOT EXISTS idx_consortium_risk ON consortium_records(risk_level);
`

const schemaPolicies = `
CREATE TABLE IF NOT EXISTS vertical_policies (
    vertical TEXT PRIMARY KEY,
    threshold REAL NOT NULL,
    aml_threshold REAL NOT NULL,
    rule_weights TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaCustomRules = `
CREATE TABLE IF NOT EXISTS custom_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    expression TEXT NOT NULL,
    severity TEXT NOT NULL,
    score REAL NOT NULL,
    verticals TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_custom_rules_tenant ON custom_rules(tenant_id, enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaTransactions,
		schemaEvaluations,
		schemaConsortium,
		schemaPolicies,
		schemaCustomRules,
	}
}
