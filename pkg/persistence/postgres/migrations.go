package postgres

// migrations returns the versioned schema of one tenant database.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS automations (
				id UUID PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				status VARCHAR(32) NOT NULL DEFAULT 'draft',
				active BOOLEAN NOT NULL DEFAULT FALSE,
				trigger_type VARCHAR(64) NOT NULL,
				schedule_type VARCHAR(32),
				cron_expression VARCHAR(64),
				interval_minutes INTEGER NOT NULL DEFAULT 0,
				scheduled_time TIMESTAMP WITH TIME ZONE,
				workflow JSONB NOT NULL DEFAULT '{}',
				deleted BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_automations_trigger
				ON automations (trigger_type) WHERE active AND NOT deleted;

			CREATE TABLE IF NOT EXISTS execution_logs (
				id UUID PRIMARY KEY,
				automation_id UUID NOT NULL REFERENCES automations (id),
				trigger_type VARCHAR(64) NOT NULL,
				status VARCHAR(32) NOT NULL,
				nodes_visited INTEGER NOT NULL DEFAULT 0,
				actions_executed INTEGER NOT NULL DEFAULT 0,
				actions_succeeded INTEGER NOT NULL DEFAULT 0,
				actions_failed INTEGER NOT NULL DEFAULT 0,
				conditions_evaluated INTEGER NOT NULL DEFAULT 0,
				context JSONB,
				correlation_id VARCHAR(64) NOT NULL,
				summary TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_execution_logs_automation
				ON execution_logs (automation_id, started_at DESC);

			CREATE TABLE IF NOT EXISTS execution_steps (
				id UUID PRIMARY KEY,
				log_id UUID NOT NULL REFERENCES execution_logs (id),
				seq INTEGER NOT NULL,
				node_id VARCHAR(128) NOT NULL,
				node_kind VARCHAR(32) NOT NULL,
				node_subtype VARCHAR(64),
				label VARCHAR(255),
				status VARCHAR(32) NOT NULL,
				error TEXT,
				result JSONB,
				http_trace JSONB,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (log_id, seq)
			);

			CREATE TABLE IF NOT EXISTS radius_accounts (
				id BIGSERIAL PRIMARY KEY,
				uuid UUID NOT NULL,
				username VARCHAR(128) NOT NULL UNIQUE,
				enabled BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	}
}
