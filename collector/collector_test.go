package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"dbmetrics/logger"
	"dbmetrics/metrics"
	"dbmetrics/metrics/metricstest"
	"dbmetrics/plugin"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	databaseSizePattern = `FROM sys\.master_files`
	logSpacePattern     = `DBCC SQLPERF\(logspace\)`
	backupPattern       = `FROM msdb\.dbo\.backupmediafamily`
	instancePattern     = `FROM sys\.dm_os_sys_info`
)

func newTestCollector(t *testing.T, queries []Query) (*Collector, sqlmock.Sqlmock, *metricstest.Recorder) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	recorder := &metricstest.Recorder{}
	emitter := metrics.NewEmitter(recorder, "db01", "mssql", logger.Discard())
	return New(db, emitter, queries, logger.Discard()), mock, recorder
}

func TestCollector_DatabaseDetailsWithoutLogSpace(t *testing.T) {
	c, mock, recorder := newTestCollector(t, MSSQLQueries()[:1])

	mock.ExpectQuery(databaseSizePattern).
		WillReturnRows(sqlmock.NewRows([]string{"DatabaseName", "state", "SizeMB"}).AddRow("master", 1, 2048))
	mock.ExpectQuery(logSpacePattern).
		WillReturnRows(sqlmock.NewRows([]string{"Database Name", "Log Size (MB)", "Log Space Used (%)", "Status"}))

	require.NoError(t, c.Run(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())

	points := recorder.Points()
	require.Len(t, points, 1)
	assert.Equal(t, "mssql_database_details", points[0].Measurement)
	assert.Equal(t, map[string]string{"hostname": "db01", "host_group": "mssql", "Database name": "master"}, points[0].TagMap())
	assert.Equal(t, map[string]any{"state": int64(1), "size": int64(2048)}, points[0].FieldMap())
}

func TestCollector_DatabaseDetailsMergesLogSpace(t *testing.T) {
	c, mock, recorder := newTestCollector(t, MSSQLQueries()[:1])

	mock.ExpectQuery(databaseSizePattern).
		WillReturnRows(sqlmock.NewRows([]string{"DatabaseName", "state", "SizeMB"}).
			AddRow("master", 0, 6).
			AddRow("tempdb", 0, 8))
	mock.ExpectQuery(logSpacePattern).
		WillReturnRows(sqlmock.NewRows([]string{"Database Name", "Log Size (MB)", "Log Space Used (%)", "Status"}).
			AddRow("tempdb", 7.99, 12.5, 0).
			AddRow("model", 1.0, 50.0, 0))

	require.NoError(t, c.Run(context.Background()))

	points := recorder.Points()
	require.Len(t, points, 2)

	assert.Equal(t, map[string]any{"state": int64(0), "size": int64(6)}, points[0].FieldMap())
	assert.Equal(t, map[string]any{
		"state": int64(0), "size": int64(8),
		"Log size": 7.99, "Log space used": 12.5, "Log status": int64(0),
	}, points[1].FieldMap())
	assert.Equal(t, []string{"state", "size", "Log size", "Log space used", "Log status"}, points[1].Fields.Keys())
}

func TestCollector_DatabaseDetailsNullNameIsTaggedNone(t *testing.T) {
	c, mock, recorder := newTestCollector(t, MSSQLQueries()[:1])

	mock.ExpectQuery(databaseSizePattern).
		WillReturnRows(sqlmock.NewRows([]string{"DatabaseName", "state", "SizeMB"}).
			AddRow("master", 0, 6).
			AddRow(nil, 6, 8).
			AddRow("msdb", 0, 20))
	mock.ExpectQuery(logSpacePattern).
		WillReturnRows(sqlmock.NewRows([]string{"Database Name", "Log Size (MB)", "Log Space Used (%)", "Status"}))

	require.NoError(t, c.Run(context.Background()))

	points := recorder.Points()
	require.Len(t, points, 3)

	name, ok := points[1].Tag("Database name")
	require.True(t, ok)
	assert.Equal(t, "None", name)
	assert.Equal(t, map[string]any{"state": int64(6), "size": int64(8)}, points[1].FieldMap())

	name, _ = points[2].Tag("Database name")
	assert.Equal(t, "msdb", name)
}

func TestCollector_BackupDetails(t *testing.T) {
	c, mock, recorder := newTestCollector(t, MSSQLQueries()[1:2])

	start := time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 1, 1, 5, 30, 250000000, time.UTC)
	mock.ExpectQuery(backupPattern).
		WillReturnRows(sqlmock.NewRows([]string{
			"backup_start_date", "last_db_backup_date", "total_time", "backup_size", "physical_device_name",
			"backup_age", "Server", "expiration_date", "logical_device_name", "backupset_name", "description",
		}).AddRow(start, end, 0, []byte("1048576"), `D:\backup\master.bak`, 3, "SQL01", nil, nil, "full", nil))

	require.NoError(t, c.Run(context.Background()))

	points := recorder.Points()
	require.Len(t, points, 1)
	assert.Equal(t, "mssql_backup_details", points[0].Measurement)

	tag, ok := points[0].Tag("Physical name")
	require.True(t, ok)
	assert.Equal(t, `D:\backup\master.bak`, tag)

	assert.Equal(t, map[string]any{
		"Start time": "2024-05-01 01:00:00",
		"End time":   "2024-05-01 01:05:30.250000",
		"Total time": int64(0),
		"Size":       int64(1048576),
		"Backup age": int64(3),
	}, points[0].FieldMap())
}

func TestCollector_InstanceDetailsWritesOnePointPerKey(t *testing.T) {
	c, mock, recorder := newTestCollector(t, MSSQLQueries()[2:])

	mock.ExpectQuery(instancePattern).
		WillReturnRows(sqlmock.NewRows([]string{"uptime_seconds", "user_connections"}).AddRow(86400, 12))

	require.NoError(t, c.Run(context.Background()))

	points := recorder.Points()
	require.Len(t, points, 2)
	assert.Equal(t, map[string]string{"hostname": "db01", "host_group": "mssql", "metric": "Up Time"}, points[0].TagMap())
	assert.Equal(t, map[string]any{"value": int64(86400)}, points[0].FieldMap())
	assert.Equal(t, map[string]string{"hostname": "db01", "host_group": "mssql", "metric": "User connections"}, points[1].TagMap())
	assert.Equal(t, map[string]any{"value": int64(12)}, points[1].FieldMap())
}

func TestCollector_QueryFailureAbortsRun(t *testing.T) {
	c, mock, recorder := newTestCollector(t, MSSQLQueries())

	mock.ExpectQuery(databaseSizePattern).WillReturnError(errors.New("VIEW SERVER STATE permission was denied"))

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, plugin.StageQuery, plugin.StageOf(err))
	assert.ErrorContains(t, err, "query database_details")
	assert.ErrorContains(t, err, "permission was denied")
	assert.Empty(t, recorder.Points())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCollector_MergedQueryFailure(t *testing.T) {
	c, mock, _ := newTestCollector(t, MSSQLQueries())

	mock.ExpectQuery(databaseSizePattern).
		WillReturnRows(sqlmock.NewRows([]string{"DatabaseName", "state", "SizeMB"}).AddRow("master", 0, 6))
	mock.ExpectQuery(logSpacePattern).WillReturnError(errors.New("boom"))

	err := c.Run(context.Background())
	assert.Equal(t, plugin.StageQuery, plugin.StageOf(err))
	assert.ErrorContains(t, err, "merged part")
}

func TestCollector_WriteFailureKeepsEarlierPoints(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	recorder := &metricstest.Recorder{Err: errors.New("partial write"), FailAfter: 1}
	emitter := metrics.NewEmitter(recorder, "db01", "mssql", logger.Discard())
	c := New(db, emitter, MSSQLQueries()[2:], logger.Discard())

	mock.ExpectQuery(instancePattern).
		WillReturnRows(sqlmock.NewRows([]string{"uptime_seconds", "user_connections"}).AddRow(10, 1))

	err = c.Run(context.Background())
	assert.Equal(t, plugin.StageWrite, plugin.StageOf(err))
	assert.ErrorContains(t, err, "partial write")
	assert.Len(t, recorder.Points(), 1)
}

func TestCollector_CoercionFailureIsQueryError(t *testing.T) {
	c, mock, _ := newTestCollector(t, MSSQLQueries()[2:])

	mock.ExpectQuery(instancePattern).
		WillReturnRows(sqlmock.NewRows([]string{"uptime_seconds", "user_connections"}).AddRow("soon", 1))

	err := c.Run(context.Background())
	assert.Equal(t, plugin.StageQuery, plugin.StageOf(err))
	assert.ErrorContains(t, err, "column 'Up Time'")
}

func TestCollector_SameDataSamePoints(t *testing.T) {
	run := func() []metrics.Point {
		c, mock, recorder := newTestCollector(t, MSSQLQueries()[:1])
		mock.ExpectQuery(databaseSizePattern).
			WillReturnRows(sqlmock.NewRows([]string{"DatabaseName", "state", "SizeMB"}).AddRow("master", 0, 6).AddRow("msdb", 0, 20))
		mock.ExpectQuery(logSpacePattern).
			WillReturnRows(sqlmock.NewRows([]string{"Database Name", "Log Size (MB)", "Log Space Used (%)", "Status"}).AddRow("msdb", 1.5, 3.0, 0))
		require.NoError(t, c.Run(context.Background()))
		return recorder.Points()
	}

	first, second := run(), run()
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Measurement, second[i].Measurement)
		assert.Equal(t, first[i].Tags, second[i].Tags)
		assert.Equal(t, first[i].Fields.Keys(), second[i].Fields.Keys())
		assert.Equal(t, first[i].FieldMap(), second[i].FieldMap())
	}
}

func TestQueries_Registry(t *testing.T) {
	for _, backend := range []string{"mssql", "oracle", "postgres"} {
		queries, err := Queries(backend)
		require.NoError(t, err, backend)
		require.NotEmpty(t, queries, backend)

		names := make(map[string]bool)
		for _, query := range queries {
			assert.False(t, names[query.Name], "duplicate query %s/%s", backend, query.Name)
			names[query.Name] = true
			assert.Contains(t, query.Measurement, backend+"_")
			if query.Mode == ModeByFields {
				assert.True(t, hasLabel(query.Primary, query.TagKey), "%s/%s tag key not selected", backend, query.Name)
			}
			if query.Secondary != nil {
				assert.True(t, hasLabel(query.Primary, query.MergeKey), "%s/%s merge key missing in primary", backend, query.Name)
				assert.True(t, hasLabel(*query.Secondary, query.MergeKey), "%s/%s merge key missing in secondary", backend, query.Name)
			}
		}
	}

	_, err := Queries("db2")
	assert.Error(t, err)
}

func TestQueries_MSSQLOrder(t *testing.T) {
	var names []string
	for _, query := range MSSQLQueries() {
		names = append(names, query.Name)
	}
	assert.Equal(t, []string{"database_details", "backup_details", "instance_details"}, names)
}

func TestCollector_OracleBattery(t *testing.T) {
	c, mock, recorder := newTestCollector(t, OracleQueries())

	created := time.Date(2020, 1, 15, 10, 0, 0, 0, time.UTC)
	expiry := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT ROUND\(\(SYSDATE - startup_time\)`).
		WillReturnRows(sqlmock.NewRows([]string{"UPTIME_SECONDS"}).AddRow([]byte("7200")))
	mock.ExpectQuery(`SELECT instance_name, status`).
		WillReturnRows(sqlmock.NewRows([]string{"INSTANCE_NAME", "STATUS", "DATABASE_STATUS", "ARCHIVER", "LOGINS"}).
			AddRow("ORCL", "OPEN", "ACTIVE", "STOPPED", "ALLOWED"))
	mock.ExpectQuery(`FROM v\$database`).
		WillReturnRows(sqlmock.NewRows([]string{"NAME", "LOG_MODE", "OPEN_MODE", "DATABASE_ROLE", "CREATED"}).
			AddRow("ORCL", "ARCHIVELOG", "READ WRITE", "PRIMARY", created))
	mock.ExpectQuery(`FROM dba_data_files`).
		WillReturnRows(sqlmock.NewRows([]string{"TABLESPACE_NAME", "SIZE_BYTES", "MAX_BYTES"}).
			AddRow("SYSTEM", 1000, 2000).
			AddRow("USERS", 500, 500))
	mock.ExpectQuery(`FROM dba_free_space`).
		WillReturnRows(sqlmock.NewRows([]string{"TABLESPACE_NAME", "FREE_BYTES"}).AddRow("USERS", 100))
	mock.ExpectQuery(`FROM dba_users`).
		WillReturnRows(sqlmock.NewRows([]string{"USERNAME", "ACCOUNT_STATUS", "EXPIRY_DATE", "DAYS_TO_EXPIRY"}).
			AddRow("APP", "OPEN", expiry, 30).
			AddRow("LEGACY", "LOCKED", nil, nil))
	mock.ExpectQuery(`FROM v\$sysmetric`).
		WillReturnRows(sqlmock.NewRows([]string{"METRIC_NAME", "VALUE", "METRIC_UNIT"}).
			AddRow("Host CPU Utilization (%)", 12.5, "% Busy/(Idle+Busy)"))

	require.NoError(t, c.Run(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())

	uptime := recorder.Measurement("oracle_instance_uptime")
	require.Len(t, uptime, 1)
	assert.Equal(t, map[string]any{"value": int64(7200)}, uptime[0].FieldMap())

	status := recorder.Measurement("oracle_instance_status")
	require.Len(t, status, 5)
	metric, _ := status[1].Tag("metric")
	assert.Equal(t, "Current Status", metric)
	assert.Equal(t, map[string]any{"value": "OPEN"}, status[1].FieldMap())

	database := recorder.Measurement("oracle_database_details")
	require.Len(t, database, 5)
	assert.Equal(t, map[string]any{"value": "2020-01-15 10:00:00"}, database[4].FieldMap())

	tablespaces := recorder.Measurement("oracle_tablespace_details")
	require.Len(t, tablespaces, 2)
	assert.Equal(t, map[string]any{"Size": int64(1000), "Max size": int64(2000)}, tablespaces[0].FieldMap())
	assert.Equal(t, map[string]any{"Size": int64(500), "Max size": int64(500), "Free space": int64(100)}, tablespaces[1].FieldMap())

	users := recorder.Measurement("oracle_user_details")
	require.Len(t, users, 2)
	assert.Equal(t, map[string]any{"Account status": "OPEN", "Expiry date": "2025-01-01 00:00:00", "Days to expiry": int64(30)}, users[0].FieldMap())
	assert.Equal(t, map[string]any{"Account status": "LOCKED", "Expiry date": "None"}, users[1].FieldMap())

	sysmetric := recorder.Measurement("oracle_sysmetric")
	require.Len(t, sysmetric, 1)
	name, _ := sysmetric[0].Tag("Metric name")
	assert.Equal(t, "Host CPU Utilization (%)", name)
	assert.Equal(t, map[string]any{"value": 12.5, "Unit": "% Busy/(Idle+Busy)"}, sysmetric[0].FieldMap())
}

func TestCollector_PostgresBattery(t *testing.T) {
	c, mock, recorder := newTestCollector(t, PostgresQueries())

	mock.ExpectQuery(`pg_postmaster_start_time`).
		WillReturnRows(sqlmock.NewRows([]string{"uptime_seconds", "connections"}).AddRow([]byte("3600.123456"), 4))
	mock.ExpectQuery(`FROM pg_database`).
		WillReturnRows(sqlmock.NewRows([]string{"datname", "size_bytes"}).AddRow("app", 8000000).AddRow("postgres", 7000000))
	mock.ExpectQuery(`FROM pg_stat_database`).
		WillReturnRows(sqlmock.NewRows([]string{"datname", "numbackends", "xact_commit", "xact_rollback"}).AddRow("app", 3, 100, 2))

	require.NoError(t, c.Run(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())

	instance := recorder.Measurement("postgres_instance_details")
	require.Len(t, instance, 2)
	assert.Equal(t, map[string]any{"value": int64(3600)}, instance[0].FieldMap())

	databases := recorder.Measurement("postgres_database_details")
	require.Len(t, databases, 2)
	assert.Equal(t, map[string]any{"size": int64(8000000), "Connections": int64(3), "Commits": int64(100), "Rollbacks": int64(2)}, databases[0].FieldMap())
	assert.Equal(t, map[string]any{"size": int64(7000000)}, databases[1].FieldMap())
}

func hasLabel(statement Statement, label string) bool {
	for _, column := range statement.Columns {
		if column.Label == label {
			return true
		}
	}
	return false
}

func TestOracleQueries_UserDetailsExcludesBuiltInAccountsByName(t *testing.T) {
	var users *Query
	for _, query := range OracleQueries() {
		if query.Name == "user_details" {
			users = &query
			break
		}
	}
	require.NotNil(t, users)
	assert.NotContains(t, users.Primary.SQL, "oracle_maintained")
	assert.Contains(t, users.Primary.SQL, "'SYS'")
	assert.Contains(t, users.Primary.SQL, "'DBSNMP'")
}
