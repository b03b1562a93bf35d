package collector

const (
	mssqlDatabaseSizeSQL = `
		SELECT DB_NAME(database_id) AS DatabaseName, SUM(state) AS state,
			SUM((size * 8) / 1024) AS SizeMB
		FROM sys.master_files
		WHERE type = 0
		GROUP BY database_id
	`

	mssqlLogSpaceSQL = `DBCC SQLPERF(logspace)`

	mssqlBackupSQL = `
		SELECT
			B.backup_start_date,
			A.last_db_backup_date,
			DATEDIFF(day, A.last_db_backup_date, B.backup_start_date) AS total_time,
			B.backup_size,
			B.physical_device_name,
			DATEDIFF(day, A.last_db_backup_date, GETDATE()) AS backup_age,
			A.[Server],
			B.expiration_date,
			B.logical_device_name,
			B.backupset_name,
			B.description
		FROM (
			SELECT
				CONVERT(CHAR(100), SERVERPROPERTY('Servername')) AS Server,
				msdb.dbo.backupset.database_name,
				MAX(msdb.dbo.backupset.backup_finish_date) AS last_db_backup_date
			FROM msdb.dbo.backupmediafamily
			INNER JOIN msdb.dbo.backupset
				ON msdb.dbo.backupmediafamily.media_set_id = msdb.dbo.backupset.media_set_id
			WHERE msdb..backupset.type = 'D'
			GROUP BY msdb.dbo.backupset.database_name
		) AS A
		LEFT JOIN (
			SELECT
				CONVERT(CHAR(100), SERVERPROPERTY('Servername')) AS Server,
				msdb.dbo.backupset.database_name,
				msdb.dbo.backupset.backup_start_date,
				msdb.dbo.backupset.backup_finish_date,
				msdb.dbo.backupset.expiration_date,
				msdb.dbo.backupset.backup_size,
				msdb.dbo.backupmediafamily.logical_device_name,
				msdb.dbo.backupmediafamily.physical_device_name,
				msdb.dbo.backupset.name AS backupset_name,
				msdb.dbo.backupset.description
			FROM msdb.dbo.backupmediafamily
			INNER JOIN msdb.dbo.backupset
				ON msdb.dbo.backupmediafamily.media_set_id = msdb.dbo.backupset.media_set_id
			WHERE msdb..backupset.type = 'D'
		) AS B
			ON A.[server] = B.[server]
			AND A.[database_name] = B.[database_name]
			AND A.[last_db_backup_date] = B.[backup_finish_date]
		ORDER BY A.database_name
	`

	mssqlInstanceSQL = `
		SELECT
			DATEDIFF(second, sqlserver_start_time, GETDATE()) AS uptime_seconds,
			(SELECT COUNT(*) FROM sys.dm_exec_sessions WHERE is_user_process = 1) AS user_connections
		FROM sys.dm_os_sys_info
	`
)

// MSSQLQueries is the SQL Server battery. Requires VIEW SERVER STATE and
// read access to msdb.
func MSSQLQueries() []Query {
	return []Query{
		{
			Name:        "database_details",
			Measurement: "mssql_database_details",
			Mode:        ModeByFields,
			TagKey:      "Database name",
			Primary: Statement{
				SQL: mssqlDatabaseSizeSQL,
				Columns: []Column{
					{Index: 0, Label: "Database name", Coerce: AsString},
					{Index: 1, Label: "state", Coerce: AsIs},
					{Index: 2, Label: "size", Coerce: AsIs},
				},
			},
			Secondary: &Statement{
				SQL: mssqlLogSpaceSQL,
				Columns: []Column{
					{Index: 0, Label: "Database name", Coerce: AsString},
					{Index: 1, Label: "Log size", Coerce: AsIs},
					{Index: 2, Label: "Log space used", Coerce: AsIs},
					{Index: 3, Label: "Log status", Coerce: AsIs},
				},
			},
			MergeKey: "Database name",
		},
		{
			Name:        "backup_details",
			Measurement: "mssql_backup_details",
			Mode:        ModeByFields,
			TagKey:      "Physical name",
			Primary: Statement{
				SQL: mssqlBackupSQL,
				Columns: []Column{
					{Index: 0, Label: "Start time", Coerce: AsString},
					{Index: 1, Label: "End time", Coerce: AsString},
					{Index: 2, Label: "Total time", Coerce: AsIs},
					{Index: 3, Label: "Size", Coerce: AsInt},
					{Index: 4, Label: "Physical name", Coerce: AsString},
					{Index: 5, Label: "Backup age", Coerce: AsIs},
				},
			},
		},
		{
			Name:        "instance_details",
			Measurement: "mssql_instance_details",
			Mode:        ModeByTags,
			Primary: Statement{
				SQL: mssqlInstanceSQL,
				Columns: []Column{
					{Index: 0, Label: "Up Time", Coerce: AsInt},
					{Index: 1, Label: "User connections", Coerce: AsInt},
				},
			},
		},
	}
}
