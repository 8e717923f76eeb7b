package repository

// Schema definitions for the tagspec database.
// Compatible with both SQLite and PostgreSQL.

// schemaRuleLibraries stores one row per rule library. Context and
// definitions are kept as JSON in the collection document format.
const schemaRuleLibraries = `
CREATE TABLE IF NOT EXISTS rule_libraries (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    context TEXT NOT NULL,
    definitions TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, id)
);

CREATE INDEX IF NOT EXISTS idx_rule_libraries_position ON rule_libraries(tenant_id, position);
`

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    data TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_tenant ON transactions(tenant_id, position);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaRuleLibraries,
		schemaTransactions,
	}
}
