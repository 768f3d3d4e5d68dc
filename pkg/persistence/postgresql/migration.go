package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE pipeline_runs (
				id UUID PRIMARY KEY,
				event JSONB NOT NULL,
				workflows JSONB NOT NULL DEFAULT '[]',
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'succeeded', 'failed')),
				jobs JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE,
				finished_at TIMESTAMP WITH TIME ZONE,
				error TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX idx_pipeline_runs_status ON pipeline_runs(status);
			CREATE INDEX idx_pipeline_runs_created_at ON pipeline_runs(created_at);
		`,
	}
}
