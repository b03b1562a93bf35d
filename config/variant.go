package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type flagKind int

const (
	kindString flagKind = iota
	kindInt
	kindBool
	kindDuration
)

// Flag describes one command line option and the configuration key it feeds
type Flag struct {
	Name     string // option name without the leading dash
	Key      string // configuration key, empty for options handled before decoding
	Usage    string
	Default  any
	Required bool
	kind     flagKind
}

// Variant describes the command line of one backend
type Variant struct {
	Backend   string
	Label     string // product name printed in the status line
	TargetKey string // configuration key naming the monitored target
	Flags     []Flag
}

// commonFlags are shared by every variant and come first in usage and in
// the list of missing required options
func commonFlags(backend string) []Flag {
	return []Flag{
		{Name: "hostname", Key: "hostname", Default: "localhost", Usage: "hostname of Icinga client"},
		{Name: "host_group", Key: "host-group", Default: backend, Usage: "host_group of Icinga client"},
		{Name: "influx_host", Key: "influx.host", Default: "localhost", Usage: "hostname of InfluxDB server"},
		{Name: "influx_port", Key: "influx.port", Default: 8086, Usage: "port of InfluxDB server", kind: kindInt},
		{Name: "influx_user", Key: "influx.user", Default: "", Usage: "InfluxDB user name"},
		{Name: "influx_password", Key: "influx.password", Default: "", Usage: "InfluxDB password"},
		{Name: "influx_db", Key: "influx.dbname", Default: "", Required: true, Usage: "InfluxDB database name"},
		{Name: "influx_timeout", Key: "influx.timeout", Default: time.Duration(0), Usage: "InfluxDB HTTP timeout, 0 keeps the client default", kind: kindDuration},
		{Name: "config", Default: "", Usage: "optional YAML configuration file"},
		{Name: "backend", Key: "backend", Default: "", Usage: "backend to check (mssql, oracle, postgres)"},
		{Name: "log_level", Key: "log.level", Default: "error", Usage: "log level: debug, info, warn, error"},
		{Name: "log_format", Key: "log.format", Default: "text", Usage: "log format: json, text"},
		{Name: "log_file", Key: "log.file", Default: "", Usage: "append logs to this file instead of stderr"},
		{Name: "dry_run", Key: "dry-run", Default: false, Usage: "print points as line protocol to stderr instead of writing them", kind: kindBool},
	}
}

var variants = map[string]Variant{
	"mssql": {
		Backend:   "mssql",
		Label:     "MSSQL",
		TargetKey: "database.host",
		Flags: []Flag{
			{Name: "mssql_server", Key: "database.host", Default: "", Required: true, Usage: "MSSQL server's hostname/IP"},
			{Name: "mssql_port", Key: "database.port", Default: 1433, Usage: "port of MSSQL server. Default 1433", kind: kindInt},
			{Name: "mssql_user", Key: "database.user", Default: "", Required: true, Usage: "MSSQL username with VIEW SERVER STATE grant"},
			{Name: "mssql_password", Key: "database.password", Default: "", Required: true, Usage: "MSSQL password"},
			{Name: "mssql_database", Key: "database.dbname", Default: "master", Usage: "Initial MSSQL database to connect"},
		},
	},
	"oracle": {
		Backend:   "oracle",
		Label:     "Oracle",
		TargetKey: "database.sid",
		Flags: []Flag{
			{Name: "oracle_user", Key: "database.user", Default: "", Required: true, Usage: "Oracle username with sys views grant"},
			{Name: "oracle_password", Key: "database.password", Default: "", Required: true, Usage: "Oracle password"},
			{Name: "oracle_sid", Key: "database.sid", Default: "", Required: true, Usage: "SID to connect"},
			{Name: "oracle_host", Key: "database.host", Default: "localhost", Usage: "Oracle listener hostname/IP"},
			{Name: "oracle_port", Key: "database.port", Default: 1521, Usage: "Oracle listener port", kind: kindInt},
		},
	},
	"postgres": {
		Backend:   "postgres",
		Label:     "PostgreSQL",
		TargetKey: "database.host",
		Flags: []Flag{
			{Name: "postgres_host", Key: "database.host", Default: "", Required: true, Usage: "PostgreSQL server's hostname/IP"},
			{Name: "postgres_port", Key: "database.port", Default: 5432, Usage: "port of PostgreSQL server", kind: kindInt},
			{Name: "postgres_user", Key: "database.user", Default: "", Required: true, Usage: "PostgreSQL username with pg_monitor role"},
			{Name: "postgres_password", Key: "database.password", Default: "", Usage: "PostgreSQL password"},
			{Name: "postgres_database", Key: "database.dbname", Default: "postgres", Usage: "Initial PostgreSQL database to connect"},
			{Name: "postgres_sslmode", Key: "database.ssl-mode", Default: "disable", Usage: "libpq sslmode"},
		},
	},
}

// LookupVariant returns the variant registered for backend
func LookupVariant(backend string) (Variant, error) {
	variant, ok := variants[strings.ToLower(backend)]
	if !ok {
		return Variant{}, fmt.Errorf("unknown backend '%s', expected one of: %s", backend, strings.Join(Backends(), ", "))
	}
	return variant, nil
}

// Backends lists the registered backend names
func Backends() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllFlags returns common and backend flags in declaration order
func (v Variant) AllFlags() []Flag {
	return append(commonFlags(v.Backend), v.Flags...)
}

// BackendFromProgram derives a backend from an executable name such as
// "check_mssql_metrics". It returns "" if the name does not follow that pattern.
func BackendFromProgram(program string) string {
	name := strings.TrimSuffix(filepath.Base(program), filepath.Ext(program))
	name = strings.TrimPrefix(name, "check_")
	name = strings.TrimSuffix(name, "_metrics")
	if _, ok := variants[name]; ok {
		return name
	}
	return ""
}
