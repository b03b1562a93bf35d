package collector

const (
	postgresInstanceSQL = `
		SELECT EXTRACT(EPOCH FROM (NOW() - pg_postmaster_start_time())) AS uptime_seconds,
			(SELECT COUNT(*) FROM pg_stat_activity WHERE backend_type = 'client backend') AS connections
	`

	postgresDatabaseSizeSQL = `
		SELECT datname, pg_database_size(datname) AS size_bytes
		FROM pg_database
		WHERE datallowconn AND NOT datistemplate
		ORDER BY datname
	`

	postgresDatabaseStatSQL = `
		SELECT datname, numbackends, xact_commit, xact_rollback
		FROM pg_stat_database
		WHERE datname IS NOT NULL
	`
)

// PostgresQueries is the PostgreSQL battery. Requires the pg_monitor role.
func PostgresQueries() []Query {
	return []Query{
		{
			Name:        "instance_details",
			Measurement: "postgres_instance_details",
			Mode:        ModeByTags,
			Primary: Statement{
				SQL: postgresInstanceSQL,
				Columns: []Column{
					{Index: 0, Label: "Up Time", Coerce: AsInt},
					{Index: 1, Label: "Connections", Coerce: AsInt},
				},
			},
		},
		{
			Name:        "database_details",
			Measurement: "postgres_database_details",
			Mode:        ModeByFields,
			TagKey:      "Database name",
			Primary: Statement{
				SQL: postgresDatabaseSizeSQL,
				Columns: []Column{
					{Index: 0, Label: "Database name", Coerce: AsString},
					{Index: 1, Label: "size", Coerce: AsInt},
				},
			},
			Secondary: &Statement{
				SQL: postgresDatabaseStatSQL,
				Columns: []Column{
					{Index: 0, Label: "Database name", Coerce: AsString},
					{Index: 1, Label: "Connections", Coerce: AsInt},
					{Index: 2, Label: "Commits", Coerce: AsInt},
					{Index: 3, Label: "Rollbacks", Coerce: AsInt},
				},
			},
			MergeKey: "Database name",
		},
	}
}
