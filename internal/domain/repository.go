package domain

import (
	"context"
	"time"
)

// Repository defines the persistence interface. Transaction, evaluation,
// policy, and custom-rule methods are tenant-scoped; consortium methods are
// deliberately cross-tenant (they operate on one-way hashes only).
type Repository interface {
	// Transactions: appended on check, mutated only to attach the outcome.
	SaveTransaction(ctx context.Context, tenantID string, tx *Transaction, ids []HashedIdentifier) error
	GetTransaction(ctx context.Context, tenantID string, txID string) (*Transaction, error)
	AttachOutcome(ctx context.Context, tenantID string, fb *Feedback) error

	// Evaluations: the decision audit log.
	SaveEvaluation(ctx context.Context, tenantID string, eval *Evaluation) error
	GetEvaluation(ctx context.Context, tenantID string, evalID string) (*Evaluation, error)

	// Consortium: keyed by hash, never deleted. Each upsert is a single
	// atomic increment so concurrent reports on the same hash never lose
	// updates.
	UpsertConsortiumRecord(ctx context.Context, id HashedIdentifier, vertical Vertical, tenantID, fraudType string, amount float64, at time.Time) error
	GetConsortiumRecords(ctx context.Context, hashes []string) ([]*ConsortiumRecord, error)
	GetConsortiumStats(ctx context.Context) (*ConsortiumStats, error)

	// ScanStacking counts distinct tenants (excluding the caller) whose
	// recent transactions carry any of the given identifier hashes.
	ScanStacking(ctx context.Context, excludeTenant string, hashes []string, since time.Time) ([]string, error)

	// Vertical policies.
	SaveVerticalPolicy(ctx context.Context, p *VerticalPolicy) error
	ListVerticalPolicies(ctx context.Context) ([]*VerticalPolicy, error)

	// Custom rules.
	SaveCustomRule(ctx context.Context, tenantID string, rule *CustomRule) error
	ListCustomRules(ctx context.Context, tenantID string) ([]*CustomRule, error)

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
