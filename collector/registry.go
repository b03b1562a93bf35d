package collector

import "fmt"

var batteries = map[string]func() []Query{
	"mssql":    MSSQLQueries,
	"oracle":   OracleQueries,
	"postgres": PostgresQueries,
}

// Queries returns the fixed query battery of backend, in run order
func Queries(backend string) ([]Query, error) {
	battery, ok := batteries[backend]
	if !ok {
		return nil, fmt.Errorf("no queries defined for backend '%s'", backend)
	}
	return battery(), nil
}
