package sql

import (
	"context"
	"database/sql"
	"dbmetrics/config"
	"dbmetrics/logger"
	"fmt"
	"net/url"
	"strconv"

	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	go_ora "github.com/sijms/go-ora/v2"
)

// DriverName returns the database/sql driver registered for backend
func DriverName(backend string) (string, error) {
	switch backend {
	case "mssql":
		return "sqlserver", nil
	case "oracle":
		return "oracle", nil
	case "postgres":
		return "postgres", nil
	default:
		return "", fmt.Errorf("no database driver for backend '%s'", backend)
	}
}

// ConnectionString builds the driver DSN for backend
func ConnectionString(backend string, config config.DbConnectionConfig) (string, error) {
	switch backend {
	case "mssql":
		query := url.Values{}
		if config.DbName != "" {
			query.Set("database", config.DbName)
		}
		dsn := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(config.User, config.Password),
			Host:     config.Host + ":" + strconv.Itoa(config.Port),
			RawQuery: query.Encode(),
		}
		return dsn.String(), nil
	case "oracle":
		options := map[string]string{}
		if config.Sid != "" {
			options["SID"] = config.Sid
		}
		return go_ora.BuildUrl(config.Host, config.Port, config.DbName, config.User, config.Password, options), nil
	case "postgres":
		sslMode := config.SslMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			quoteConnValue(config.Host), config.Port, quoteConnValue(config.User),
			quoteConnValue(config.Password), quoteConnValue(config.DbName), quoteConnValue(sslMode)), nil
	default:
		return "", fmt.Errorf("no connection string format for backend '%s'", backend)
	}
}

// Connect opens and verifies a single-connection handle to the monitored database
func Connect(ctx context.Context, log *logger.Logger, backend string, config config.DbConnectionConfig) (*sql.DB, error) {
	driverName, err := DriverName(backend)
	if err != nil {
		return nil, err
	}
	connectionString, err := ConnectionString(backend, config)
	if err != nil {
		return nil, err
	}

	connection, err := sql.Open(driverName, connectionString)
	if err != nil {
		log.Error(ctx, err, "error while open database", "backend", backend, "host", config.Host)
		return nil, fmt.Errorf("failed to open %s connection to %s: %w", backend, config.Host, err)
	}

	connection.SetMaxOpenConns(1)
	connection.SetMaxIdleConns(1)

	if err := connection.PingContext(ctx); err != nil {
		connection.Close()
		log.Error(ctx, err, "error while connecting to database", "backend", backend, "host", config.Host)
		return nil, fmt.Errorf("failed to connect to %s at %s:%d: %w", backend, config.Host, config.Port, err)
	}

	log.Info(ctx, "Connected to database", "backend", backend, "host", config.Host, "port", config.Port)
	return connection, nil
}

// quoteConnValue quotes a libpq keyword/value when it is empty or contains
// spaces, quotes or backslashes
func quoteConnValue(value string) string {
	needsQuotes := value == ""
	escaped := make([]rune, 0, len(value))
	for _, r := range value {
		switch r {
		case '\'', '\\':
			escaped = append(escaped, '\\', r)
			needsQuotes = true
		case ' ', '\t', '\n':
			escaped = append(escaped, r)
			needsQuotes = true
		default:
			escaped = append(escaped, r)
		}
	}
	if needsQuotes {
		return "'" + string(escaped) + "'"
	}
	return value
}
