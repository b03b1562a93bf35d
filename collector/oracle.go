package collector

const (
	oracleUptimeSQL = `
		SELECT ROUND((SYSDATE - startup_time) * 86400) AS uptime_seconds
		FROM v$instance
	`

	oracleInstanceStatusSQL = `
		SELECT instance_name, status, database_status, archiver, logins
		FROM v$instance
	`

	oracleDatabaseSQL = `
		SELECT name, log_mode, open_mode, database_role, created
		FROM v$database
	`

	oracleTablespaceSizeSQL = `
		SELECT tablespace_name,
			SUM(bytes) AS size_bytes,
			SUM(GREATEST(maxbytes, bytes)) AS max_bytes
		FROM dba_data_files
		GROUP BY tablespace_name
		ORDER BY tablespace_name
	`

	oracleTablespaceFreeSQL = `
		SELECT tablespace_name, SUM(bytes) AS free_bytes
		FROM dba_free_space
		GROUP BY tablespace_name
	`

	oracleUserSQL = `
		SELECT username, account_status, expiry_date,
			TRUNC(expiry_date - SYSDATE) AS days_to_expiry
		FROM dba_users
		WHERE username NOT IN (
			'SYS', 'SYSTEM', 'SYSMAN', 'DBSNMP', 'OUTLN', 'XDB', 'ANONYMOUS',
			'APPQOSSYS', 'AUDSYS', 'CTXSYS', 'DIP', 'EXFSYS', 'GSMADMIN_INTERNAL',
			'MDSYS', 'MGMT_VIEW', 'OJVMSYS', 'OLAPSYS', 'ORACLE_OCM', 'ORDDATA',
			'ORDPLUGINS', 'ORDSYS', 'SI_INFORMTN_SCHEMA', 'SPATIAL_CSW_ADMIN_USR',
			'SPATIAL_WFS_ADMIN_USR', 'WMSYS', 'XS$NULL', 'LBACSYS', 'DVSYS', 'FLOWS_FILES'
		)
		ORDER BY username
	`

	oracleSysmetricSQL = `
		SELECT metric_name, value, metric_unit
		FROM v$sysmetric
		WHERE group_id = 2
		ORDER BY metric_name
	`
)

// OracleQueries is the Oracle battery. Requires SELECT on the v$ and dba_ views.
// Built-in accounts are excluded by name so user_details also runs on 11g,
// where dba_users has no oracle_maintained column.
func OracleQueries() []Query {
	return []Query{
		{
			Name:        "instance_uptime",
			Measurement: "oracle_instance_uptime",
			Mode:        ModeByTags,
			Primary: Statement{
				SQL: oracleUptimeSQL,
				Columns: []Column{
					{Index: 0, Label: "Up Time", Coerce: AsInt},
				},
			},
		},
		{
			Name:        "instance_status",
			Measurement: "oracle_instance_status",
			Mode:        ModeByTags,
			Primary: Statement{
				SQL: oracleInstanceStatusSQL,
				Columns: []Column{
					{Index: 0, Label: "Instance name", Coerce: AsString},
					{Index: 1, Label: "Current Status", Coerce: AsString},
					{Index: 2, Label: "Database status", Coerce: AsString},
					{Index: 3, Label: "Archiver", Coerce: AsString},
					{Index: 4, Label: "Logins", Coerce: AsString},
				},
			},
		},
		{
			Name:        "database_details",
			Measurement: "oracle_database_details",
			Mode:        ModeByTags,
			Primary: Statement{
				SQL: oracleDatabaseSQL,
				Columns: []Column{
					{Index: 0, Label: "Name", Coerce: AsString},
					{Index: 1, Label: "Log mode", Coerce: AsString},
					{Index: 2, Label: "Open mode", Coerce: AsString},
					{Index: 3, Label: "Database role", Coerce: AsString},
					{Index: 4, Label: "Created", Coerce: AsString},
				},
			},
		},
		{
			Name:        "tablespace_details",
			Measurement: "oracle_tablespace_details",
			Mode:        ModeByFields,
			TagKey:      "Tablespace name",
			Primary: Statement{
				SQL: oracleTablespaceSizeSQL,
				Columns: []Column{
					{Index: 0, Label: "Tablespace name", Coerce: AsString},
					{Index: 1, Label: "Size", Coerce: AsInt},
					{Index: 2, Label: "Max size", Coerce: AsInt},
				},
			},
			Secondary: &Statement{
				SQL: oracleTablespaceFreeSQL,
				Columns: []Column{
					{Index: 0, Label: "Tablespace name", Coerce: AsString},
					{Index: 1, Label: "Free space", Coerce: AsInt},
				},
			},
			MergeKey: "Tablespace name",
		},
		{
			Name:        "user_details",
			Measurement: "oracle_user_details",
			Mode:        ModeByFields,
			TagKey:      "Username",
			Primary: Statement{
				SQL: oracleUserSQL,
				Columns: []Column{
					{Index: 0, Label: "Username", Coerce: AsString},
					{Index: 1, Label: "Account status", Coerce: AsString},
					{Index: 2, Label: "Expiry date", Coerce: AsString},
					{Index: 3, Label: "Days to expiry", Coerce: AsInt},
				},
			},
		},
		{
			Name:        "sysmetric",
			Measurement: "oracle_sysmetric",
			Mode:        ModeByFields,
			TagKey:      "Metric name",
			Primary: Statement{
				SQL: oracleSysmetricSQL,
				Columns: []Column{
					{Index: 0, Label: "Metric name", Coerce: AsString},
					{Index: 1, Label: "value", Coerce: AsFloat},
					{Index: 2, Label: "Unit", Coerce: AsString},
				},
			},
		},
	}
}
